// Package anthropic implements ports.Generator on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "anthropic"

// DefaultModel is a small, fast model suited to voice latency.
const DefaultModel = "claude-haiku-4-5"

// Options configures the generator.
type Options struct {
	Model     string
	MaxTokens int64
	APIKey    string

	// RequestOptions are appended to the client options (base URL, retries, HTTP client).
	RequestOptions []option.RequestOption
}

// Generator calls the Messages API once per turn.
type Generator struct {
	client *anthropic.Client
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

	client := anthropic.NewClient(clientOpts...)
	return &Generator{client: &client, opts: opts}
}

// NewFromClient wraps an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:     DefaultModel,
		MaxTokens: domain.DefaultMaxTokens,
	}
}

// Name implements ports.Generator.
func (g *Generator) Name() string { return ProviderName }

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	messages := buildMessages(req.History)
	if len(messages) == 0 {
		return "", domain.NewBackendError(ProviderName, domain.BackendMalformed, errors.New("no user turn to answer"))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.opts.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapError(ctx, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// buildMessages converts the history to the alternating user/assistant
// sequence the API requires. Leading assistant turns are dropped and
// consecutive turns of the same role are merged.
func buildMessages(history []domain.Turn) []anthropic.MessageParam {
	start := 0
	for start < len(history) && history[start].Role != domain.RoleUser {
		start++
	}

	var (
		messages []anthropic.MessageParam
		role     domain.Role
		parts    []string
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		block := anthropic.NewTextBlock(strings.Join(parts, "\n"))
		if role == domain.RoleUser {
			messages = append(messages, anthropic.NewUserMessage(block))
		} else {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		}
		parts = nil
	}

	for _, turn := range history[start:] {
		if turn.Role != role {
			flush()
			role = turn.Role
		}
		parts = append(parts, turn.Content)
	}
	flush()
	return messages
}

func wrapError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return domain.NewBackendError(ProviderName, dialogue.ClassifyStatus(apiErr.StatusCode), err)
	}
	return domain.NewBackendError(ProviderName, dialogue.Classify(ctx, err), err)
}
