package s3host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

const providerName = "s3"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options configures the S3 image host.
type Options struct {
	Bucket string
	Prefix string
	// Expiry is the lifetime of the presigned GET URL handed to the try-on provider.
	Expiry time.Duration
	Logger *infra.Logger
	NewKey func() string
}

// Host stores uploads in an S3 bucket and exposes them through presigned URLs,
// so the bucket itself can stay private.
type Host struct {
	bucket    string
	prefix    string
	expiry    time.Duration
	putter    objectPutter
	presigner getPresigner
	logger    *infra.Logger
	newKey    func() string
}

// New loads the default AWS credential chain and builds a Host. An empty
// bucket yields a Host that reports missing configuration on every upload.
func New(ctx context.Context, region string, opts Options) (*Host, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return newHost(nil, nil, opts), nil
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3host: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return newHost(client, s3.NewPresignClient(client), opts), nil
}

func newHost(putter objectPutter, presigner getPresigner, opts Options) *Host {
	prefix := strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	newKey := opts.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Host{
		bucket:    strings.TrimSpace(opts.Bucket),
		prefix:    prefix,
		expiry:    expiry,
		putter:    putter,
		presigner: presigner,
		logger:    logger,
		newKey:    newKey,
	}
}

// MissingCredentials lists the configuration keys the host still needs.
func (h *Host) MissingCredentials() []string {
	if h.bucket == "" || h.putter == nil || h.presigner == nil {
		return []string{"S3_BUCKET"}
	}
	return nil
}

// Upload writes data under a fresh key and returns a presigned URL for it.
func (h *Host) Upload(ctx context.Context, data []byte, contentType string) (domain.HostedImage, error) {
	if missing := h.MissingCredentials(); len(missing) > 0 {
		return domain.HostedImage{}, &domain.ConfigurationError{Missing: missing}
	}
	if len(data) == 0 {
		return domain.HostedImage{}, errors.New("s3host: image data is required")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := path.Join(h.prefix, h.newKey()+extensionFor(contentType))

	_, err := h.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.HostedImage{}, &domain.UpstreamError{Provider: providerName, Op: "put_object", Err: err}
	}
	presigned, err := h.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(h.expiry))
	if err != nil {
		return domain.HostedImage{}, &domain.UpstreamError{Provider: providerName, Op: "presign", Err: err}
	}
	h.logger.Debug().Str("bucket", h.bucket).Str("key", key).Msg("s3host: image uploaded")
	return domain.HostedImage{URL: presigned.URL, ID: key}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
