package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/handler"
	"github.com/noah-isme/academic-records/internal/repository"
	"github.com/noah-isme/academic-records/internal/service"
	"github.com/noah-isme/academic-records/pkg/config"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
	"github.com/noah-isme/academic-records/pkg/logger"
	"github.com/noah-isme/academic-records/pkg/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return appErrors.ExitInternal
	}

	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return appErrors.ExitInternal
	}
	defer logr.Sync() //nolint:errcheck

	metrics := service.NewMetricsService()

	dataStorage, err := storage.NewLocalStorage(cfg.Storage.DataDir)
	if err != nil {
		return exitCode(err, stderr, logr)
	}
	exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return exitCode(err, stderr, logr)
	}

	store := repository.NewFileStore(dataStorage, metrics, logr.Named("store"))
	catalog, err := store.Load()
	if err != nil {
		return exitCode(err, stderr, logr)
	}

	validate := validator.New()
	svc := handler.Services{
		Catalog:    service.NewCatalogService(catalog, metrics, validate, logr.Named("catalog")),
		Enrollment: service.NewEnrollmentService(catalog, metrics, validate, logr.Named("enrollment")),
		Evaluation: service.NewEvaluationService(catalog, metrics, validate, logr.Named("evaluation")),
		Reports:    service.NewReportService(catalog, logr.Named("reports")),
		Exports:    service.NewExportService(exportStorage, nil, nil, metrics, logr.Named("exports")),
	}
	cli := handler.NewCommandLine(svc, catalog, store, handler.Options{Autosave: cfg.Storage.Autosave}, stdout, stderr, logr)

	runErr := cli.Run(args)

	metrics.ObserveCatalog(catalog)
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logr.Warn("metrics textfile not written", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
	return exitCode(runErr, stderr, logr)
}

// exitCode reports err on stderr and maps it to the process exit status.
func exitCode(err error, stderr io.Writer, logr *zap.Logger) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, handler.ErrHelp) {
		return appErrors.ExitValidation
	}
	appErr := appErrors.FromError(err)
	fmt.Fprintf(stderr, "error: %s\n", appErr.Error())
	logr.Debug("command failed", zap.String("code", appErr.Code), zap.Error(err))
	return appErr.ExitCode
}
