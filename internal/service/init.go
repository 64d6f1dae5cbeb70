package service

import (
	"context"
	"sync"
	"time"

	"magic-mirror/config"
	"magic-mirror/internal/types"
	"magic-mirror/internal/workflow"
	"magic-mirror/pkg/genapi"
	"magic-mirror/pkg/openai"
)

// PromptEnhancer polishes a user's free-form style description before it
// is sent to the generation service.
type PromptEnhancer interface {
	EnhancePrompt(ctx context.Context, feature types.Feature, prompt string) (string, error)
}

type taskHandle struct {
	controller *workflow.Controller
	instance   *workflow.Instance
}

type Service struct {
	Backend  workflow.Backend
	Enhancer PromptEnhancer
	Opts     workflow.Options

	mu      sync.Mutex
	handles map[string]*taskHandle
}

func NewService() *Service {
	backend := genapi.NewClient(
		config.Conf.Api.BaseUrl,
		config.Conf.Api.ApiKey,
		config.Conf.App.Proxy,
	).WithTimeout(time.Duration(config.Conf.Api.Timeout) * time.Second)

	var enhancer PromptEnhancer
	if config.Conf.Llm.ApiKey != "" {
		enhancer = openai.NewClient(
			config.Conf.Llm.BaseUrl,
			config.Conf.Llm.ApiKey,
			config.Conf.Llm.Model,
			config.Conf.App.Proxy,
		)
	}

	opts := workflow.Options{
		PollInterval: time.Duration(config.Conf.Workflow.PollInterval) * time.Second,
		PollTimeout:  time.Duration(config.Conf.Workflow.PollTimeout) * time.Second,
		MaxAttempts:  config.Conf.Workflow.MaxAttempts,
	}

	return NewServiceWith(backend, enhancer, opts)
}

// NewServiceWith assembles a service from explicit collaborators, used by
// tests and embedders that bypass the global config.
func NewServiceWith(backend workflow.Backend, enhancer PromptEnhancer, opts workflow.Options) *Service {
	return &Service{
		Backend:  backend,
		Enhancer: enhancer,
		Opts:     opts,
		handles:  map[string]*taskHandle{},
	}
}
