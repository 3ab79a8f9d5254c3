package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tryon/internal/http/handlers"
	httpapi "tryon/internal/http/httpapi"
	"tryon/internal/infra"
	"tryon/internal/providers/channel3"
	"tryon/internal/providers/cloudflare"
	"tryon/internal/providers/glam"
	"tryon/internal/providers/s3host"
	"tryon/internal/tryon"
)

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	search := channel3.NewClient(channel3.Options{
		APIKey:     cfg.Channel3APIKey,
		BaseURL:    cfg.Channel3BaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	provider := glam.NewClient(glam.Options{
		APIKey:     cfg.GlamAIAPIKey,
		BaseURL:    cfg.GlamAIBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	host, err := newImageHost(ctx, cfg, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure image host")
	}

	for name, missing := range map[string][]string{
		"search":     search.MissingCredentials(),
		"tryon":      provider.MissingCredentials(),
		"image_host": host.MissingCredentials(),
	} {
		if len(missing) > 0 {
			logger.Warn().Str("component", name).Strs("missing", missing).Msg("api: credentials missing, requests will fail with configuration_error")
		}
	}

	app := handlers.NewApp(
		search,
		tryon.NewSubmitter(provider, host, &logger),
		tryon.NewUploader(host),
		tryon.NewProviderStatus(provider),
		&logger,
	)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Str("image_host", cfg.ImageHost).Msg("api: listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("api: server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("api: server stopped")
}

func newImageHost(ctx context.Context, cfg *infra.Config, httpClient *http.Client, logger *infra.Logger) (tryon.ImageHost, error) {
	if cfg.ImageHost == infra.ImageHostS3 {
		return s3host.New(ctx, cfg.S3Region, s3host.Options{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3UploadPrefix,
			Expiry: cfg.ImageUploadExpiry,
			Logger: logger,
		})
	}
	return cloudflare.NewClient(cloudflare.Options{
		AccountID:   cfg.CloudflareAccountID,
		APIToken:    cfg.CloudflareImagesToken,
		AccountHash: cfg.CloudflareImagesHash,
		BaseURL:     cfg.CloudflareBaseURL,
		Expiry:      cfg.ImageUploadExpiry,
		HTTPClient:  httpClient,
		Logger:      logger,
	}), nil
}
