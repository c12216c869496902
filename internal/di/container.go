// Package di wires the application together with a dig container.
package di

import (
	"go.uber.org/dig"

	"github.com/lsmadison/clinic-forms/internal/adapters/httpserver"
	"github.com/lsmadison/clinic-forms/internal/altcha"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/factory"
	"github.com/lsmadison/clinic-forms/internal/logging"
	"github.com/lsmadison/clinic-forms/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register typed config sections
	if err := container.Provide(func(cfg *config.Config) (config.SpamConfig, error) {
		return cfg.GetSpam()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (config.ChallengeConfig, error) {
		return cfg.GetChallenge()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) config.LLMConfig {
		return cfg.GetLLM()
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRateLimitFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register rate limit store
	if err := container.Provide(func(f *factory.RateLimitFactory) (core.RateLimitStore, error) {
		return f.CreateRateLimitStore()
	}); err != nil {
		return nil, err
	}

	// Register submission store
	if err := container.Provide(func(f *factory.StoreFactory) (core.SubmissionStore, error) {
		return f.CreateSubmissionStore()
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(f *factory.NotifierFactory) (core.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return nil, err
	}

	// Register challenge verifier
	if err := container.Provide(altcha.NewVerifier); err != nil {
		return nil, err
	}
	if err := container.Provide(func(v *altcha.Verifier) core.ChallengeVerifier {
		return v
	}); err != nil {
		return nil, err
	}

	// Register content analyzer
	if err := container.Provide(core.NewContentAnalyzer); err != nil {
		return nil, err
	}

	// Register spam guard service
	if err := container.Provide(core.NewSpamGuardService); err != nil {
		return nil, err
	}

	// Register client IP resolver
	if err := container.Provide(func(spamCfg config.SpamConfig) *httpserver.ClientIPResolver {
		return httpserver.NewClientIPResolver(spamCfg.ClientIPHeaders)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(httpserver.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
