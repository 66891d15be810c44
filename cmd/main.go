package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"firestore-copier/internal/copier/config"
	"firestore-copier/internal/di"
	"firestore-copier/internal/shared/errors"
	"firestore-copier/internal/shared/logger"

	"github.com/joho/godotenv"
)

const (
	sourceCollection      = "operations"
	destinationCollection = "qpost-operations"
)

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr))
}

// run copies sourceCollection into destinationCollection and returns the
// process exit status. Logs go to stderr, stdout only gets the summary line.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	appLogger := logger.NewLoggerWithOutput(cfg.Log.Level, cfg.Log.Format, stderr)
	if envErr != nil && !os.IsNotExist(envErr) {
		appLogger.Warnf("Could not load .env file: %v", envErr)
	}

	container, err := di.NewContainer(ctx, cfg, appLogger)
	if err != nil {
		logFailure(appLogger, err)
		return 1
	}
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	ctx = container.RunContext(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	err = container.HealthCheck(pingCtx)
	cancel()
	if err != nil {
		logFailure(appLogger.WithContext(ctx), err)
		return 1
	}

	result, err := container.Copier.CopyCollection(ctx, sourceCollection, destinationCollection)
	if err != nil {
		logFailure(appLogger.WithContext(ctx), err)
		return 1
	}

	fmt.Fprintln(stdout, result.Summary())
	return 0
}

// logFailure reports err once, with its type, code and details.
func logFailure(log logger.Logger, err error) {
	message := "Copy failed"
	switch {
	case errors.IsValidation(err):
		message = "Copy rejected: invalid collection names"
	case errors.IsSnapshotFailure(err):
		message = "Copy failed: source snapshot could not be read"
	case errors.IsCommitFailure(err):
		message = "Copy stopped at a rejected batch"
	}

	entry := log.WithError(err)
	if appErr, ok := errors.AsAppError(err); ok {
		entry = entry.WithFields(map[string]interface{}{
			"error_type": string(appErr.Type),
			"error_code": appErr.Code,
		}).WithFields(appErr.Details)
	}
	entry.Error(message)
}
