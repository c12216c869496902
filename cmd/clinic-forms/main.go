package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lsmadison/clinic-forms/internal/adapters/httpserver"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/di"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	server *httpserver.Server,
	rateLimiter core.RateLimitStore,
	submissionStore core.SubmissionStore,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("HTTP server failed", zap.Error(err))
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	// Close any resources that need closing
	if stopper, ok := rateLimiter.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if stopper, ok := submissionStore.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
