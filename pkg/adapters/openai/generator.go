// Package openai implements ports.Generator on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"

	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "openai"

// Options configures the generator.
type Options struct {
	Model               string
	MaxCompletionTokens int64
	APIKey              string

	// RequestOptions are appended to the client options.
	RequestOptions []option.RequestOption
}

// Generator calls Chat Completions once per turn.
type Generator struct {
	client *openai.Client
	opts   Options
}

// New builds a Generator with its own client.
func New(optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	clientOpts = append(clientOpts, opts.RequestOptions...)

	client := openai.NewClient(clientOpts...)
	return &Generator{client: &client, opts: opts}
}

// NewFromClient wraps an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: domain.DefaultMaxTokens,
	}
}

// Name implements ports.Generator.
func (g *Generator) Name() string { return ProviderName }

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.opts.MaxCompletionTokens
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               g.opts.Model,
		Messages:            buildMessages(req),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", domain.NewBackendError(ProviderName, dialogue.ClassifyStatus(apiErr.StatusCode), err)
		}
		return "", domain.NewBackendError(ProviderName, dialogue.Classify(ctx, err), err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewBackendError(ProviderName, domain.BackendMalformed, errors.New("no choices in completion"))
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(req ports.GenerateRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	return messages
}
