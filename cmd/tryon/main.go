package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tryon/internal/apiclient"
	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/storage"
	"tryon/internal/tryon"
)

func main() {
	infra.LoadDotEnv()

	var (
		apiFlag   string
		queryFlag string
		pickFlag  int
		photoFlag string
		outFlag   string
	)
	flag.StringVar(&apiFlag, "api", envOr("TRYON_API_URL", "http://localhost:8080"), "base URL of the try-on API")
	flag.StringVar(&queryFlag, "query", "", "product search query")
	flag.IntVar(&pickFlag, "pick", 1, "1-based index of the product to try on")
	flag.StringVar(&photoFlag, "photo", "", "path to a photo of yourself (jpeg, png or webp)")
	flag.StringVar(&outFlag, "out", "./results", "directory the generated image is saved to")
	flag.Parse()

	if strings.TrimSpace(queryFlag) == "" {
		exitWithError(errors.New("-query is required"))
	}
	if strings.TrimSpace(photoFlag) == "" {
		exitWithError(errors.New("-photo is required"))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "tryon-cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.NewClient(apiclient.Options{
		BaseURL:    apiFlag,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout + cfg.HTTPReadTimeout},
		Logger:     &logger,
	})
	if err := client.Health(ctx); err != nil {
		exitWithError(fmt.Errorf("api not reachable at %s: %w", apiFlag, err))
	}

	wizard := tryon.NewController(client, tryon.PollerOptions{
		Interval: cfg.TryOnPollInterval,
		Timeout:  cfg.TryOnPollTimeout,
		Logger:   &logger,
	})
	go func() {
		<-ctx.Done()
		wizard.Reset()
	}()

	products, err := wizard.Search(ctx, queryFlag)
	if err != nil {
		exitWithError(fmt.Errorf("search: %w", err))
	}
	if len(products) == 0 {
		exitWithError(fmt.Errorf("no products found for %q", queryFlag))
	}
	for i, p := range products {
		fmt.Printf("%2d. %s", i+1, p.Title)
		if p.BrandName != "" {
			fmt.Printf(" (%s)", p.BrandName)
		}
		fmt.Println()
	}
	if pickFlag < 1 || pickFlag > len(products) {
		exitWithError(fmt.Errorf("-pick must be between 1 and %d", len(products)))
	}
	product, err := wizard.SelectProduct(products[pickFlag-1].ID)
	if err != nil {
		exitWithError(err)
	}

	photo, err := os.ReadFile(photoFlag)
	if err != nil {
		exitWithError(fmt.Errorf("read photo: %w", err))
	}
	if err := wizard.SetPhoto(base64.StdEncoding.EncodeToString(photo)); err != nil {
		exitWithError(err)
	}

	fmt.Printf("Trying on %s...\n", product.Title)
	job, err := wizard.TryOn(ctx)
	if err != nil {
		exitWithError(describe(err))
	}
	if job.Result == nil || job.Result.IsZero() {
		exitWithError(fmt.Errorf("try-on %s completed without an image", job.JobID))
	}

	store, err := storage.NewFileStore(outFlag, nil)
	if err != nil {
		exitWithError(err)
	}
	name := "tryon-" + product.ID
	if job.JobID != "" {
		name = "tryon-" + job.JobID
	}
	path, err := store.SaveResult(ctx, name, *job.Result)
	if err != nil {
		exitWithError(fmt.Errorf("save result: %w", err))
	}
	if job.Result.URL != "" {
		fmt.Printf("Result: %s\n", job.Result.URL)
	}
	fmt.Printf("Saved to %s\n", path)
}

// describe turns a try-on failure into the message shown to the user.
func describe(err error) error {
	switch domain.KindOf(err) {
	case domain.KindTimeout:
		return errors.New("try-on did not finish in time, please try again")
	case domain.KindConfiguration:
		return fmt.Errorf("the API is not fully configured: %w", err)
	}
	switch {
	case errors.Is(err, domain.ErrTryOnFailed):
		return errors.New("try-on processing failed, try another photo or product")
	case errors.Is(err, context.Canceled):
		return errors.New("canceled")
	}
	return err
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
