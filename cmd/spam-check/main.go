package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	guard *core.SpamGuardService,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	// Read message from file or stdin
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file",
				zap.Error(err),
				zap.String("file", flags.InputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read message", zap.Error(err))
	}
	text := string(body)

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("Length: %d bytes\n", len(text))
	if flags.UseLLM {
		fmt.Printf("LLM provider: %s\n", flags.Provider)
		fmt.Printf("LLM threshold: %.2f\n", flags.LLMThreshold)
	}

	startTime := time.Now()
	verdict := guard.AnalyzeText(context.Background(), text)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Is spam: %t\n", verdict.IsSpam)
	if verdict.IsSpam {
		fmt.Printf("Reason: %s\n", verdict.Reason)
	}
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	if verdict.IsSpam {
		os.Exit(1)
	}
	return nil
}
