package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/menucase/internal/infra/config"
	"github.com/mkrupp/menucase/internal/infra/logging"
	"github.com/mkrupp/menucase/internal/infra/transport/http"
	"github.com/mkrupp/menucase/internal/repo/catalog"
	"github.com/mkrupp/menucase/internal/repo/derivative"
	"github.com/mkrupp/menucase/internal/svc/catalogsvc"
	"github.com/mkrupp/menucase/internal/svc/imagesvc"
)

const (
	appName = "demo"
	svcName = "menucase"
)

type Config struct {
	config.EnvConfig

	Log         logging.LoggerConfig                  `envPrefix:"LOG_"`
	Image       imagesvc.ImageConfig                  `envPrefix:"IMAGE_"`
	ImageHTTP   imagesvc.HTTPTransportConfig          `envPrefix:"IMAGE_HTTP_"`
	Store       derivative.FileSystemStoreConfig      `envPrefix:"STORE_"`
	Catalog     catalog.SQLiteCatalogRepositoryConfig `envPrefix:"CATALOG_"`
	CatalogHTTP catalogsvc.HTTPTransportConfig        `envPrefix:"CATALOG_HTTP_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFiles(".env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.menucase")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	resizer, err := imagesvc.NewImagingResizer(cfg.Image)
	if err != nil {
		return fmt.Errorf("new resizer: %w", err)
	}

	names, err := imagesvc.NewRandomNameGenerator()
	if err != nil {
		return fmt.Errorf("new name generator: %w", err)
	}

	imageSvc, err := imagesvc.NewDerivativeImageService(
		ctx,
		derivative.FileSystemStoreFactory(cfg.Store),
		resizer,
		names,
		nil,
		cfg.Image,
	)
	if err != nil {
		return fmt.Errorf("new image service: %w", err)
	}

	catalogSvc, err := catalogsvc.NewCatalogService(
		ctx,
		catalog.SQLiteCatalogRepositoryFactory(cfg.Catalog),
		imageSvc,
	)
	if err != nil {
		return fmt.Errorf("new catalog service: %w", err)
	}

	defer func() {
		if closeErr := catalogSvc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close catalog service: %w", closeErr)
		}
	}()

	handler := http.Mount(
		imagesvc.NewHTTPTransport(imageSvc, cfg.Store.Basedir, cfg.ImageHTTP),
		catalogsvc.NewHTTPTransport(catalogSvc, cfg.CatalogHTTP),
	)

	if err := http.ListenAndServe(ctx, handler, cfg.ImageHTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
