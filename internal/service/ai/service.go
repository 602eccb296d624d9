package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"portfolio/internal/chat"
	"portfolio/internal/config"
)

// MaxMessageRunes bounds the visitor question passed to the model.
const MaxMessageRunes = 500

// ErrNotConfigured means no provider API key is available.
var ErrNotConfigured = errors.New("ai provider not configured")

var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
	"gemini": "gemini-2.0-flash",
}

// NewChatModel builds the eino chat model for provider.
func NewChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	modelType := provCfg.Model
	if modelType == "" {
		modelType = defaultModels[provider]
	}
	switch provider {
	case "openai":
		temperature := float32(0.7)
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     provCfg.BaseURL,
			Model:       modelType,
			APIKey:      provCfg.APIKey,
			Temperature: &temperature,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("new gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelType,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelType,
			BaseURL:   baseURLPtr,
			MaxTokens: 1024,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// Service answers visitor questions about the portfolio.
type Service struct {
	chatModel model.ToolCallingChatModel
	agent     *react.Agent
	knowledge *Knowledge
	projects  ProjectLister
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	tools bool
}

// WithoutTools streams straight from the model instead of the tool agent.
func WithoutTools() Option {
	return func(o *serviceOptions) { o.tools = false }
}

// NewService wires a chat model with the knowledge base. chatModel may be
// nil, in which case the service reports ErrNotConfigured.
func NewService(ctx context.Context, chatModel model.ToolCallingChatModel, knowledge *Knowledge, projects ProjectLister, logger zerolog.Logger, opts ...Option) (*Service, error) {
	o := serviceOptions{tools: true}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Service{
		chatModel: chatModel,
		knowledge: knowledge,
		projects:  projects,
		logger:    logger,
	}
	if chatModel != nil && o.tools && projects != nil {
		agent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: []tool.BaseTool{NewListProjectsTool(projects)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
		s.agent = agent
	}
	return s, nil
}

// NewServiceFromConfig selects the configured provider. A missing API key is
// not an error; the service then answers every request with ErrNotConfigured.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, knowledge *Knowledge, projects ProjectLister, logger zerolog.Logger) (*Service, error) {
	provider := cfg.BasicConfig.Provider
	provCfg, ok := cfg.Provider(provider)
	if !ok || strings.TrimSpace(provCfg.APIKey) == "" {
		logger.Warn().Str("provider", provider).Msg("no api key configured, chat disabled")
		return NewService(ctx, nil, knowledge, projects, logger)
	}
	chatModel, err := NewChatModel(ctx, provider, provCfg)
	if err != nil {
		return nil, fmt.Errorf("start ai service: %w", err)
	}
	logger.Info().Str("provider", provider).Msg("ai provider ready")
	return NewService(ctx, chatModel, knowledge, projects, logger)
}

// Configured reports whether a model is available.
func (s *Service) Configured() bool {
	return s != nil && s.chatModel != nil
}

// Knowledge exposes the knowledge base for reloads.
func (s *Service) Knowledge() *Knowledge {
	return s.knowledge
}

// StreamChat answers message given the prior pairs, calling onToken with
// each content delta in order.
func (s *Service) StreamChat(ctx context.Context, message string, history []chat.Pair, onToken func(string) error) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	message = TruncateMessage(message)
	if message == "" {
		return errors.New("message cannot be empty")
	}
	messages := s.buildMessages(ctx, message, history)

	var (
		streamReader *schema.StreamReader[*schema.Message]
		err          error
	)
	if s.agent != nil {
		streamReader, err = s.agent.Stream(ctx, messages)
	} else {
		streamReader, err = s.chatModel.Stream(ctx, messages)
	}
	if err != nil {
		return fmt.Errorf("generate ai stream failed: %w", err)
	}
	defer streamReader.Close()

	for {
		chunk, err := streamReader.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive ai stream: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := onToken(chunk.Content); err != nil {
			return err
		}
	}
}

// TruncateMessage trims message and keeps at most MaxMessageRunes runes.
func TruncateMessage(message string) string {
	message = strings.TrimSpace(message)
	if runes := []rune(message); len(runes) > MaxMessageRunes {
		message = strings.TrimSpace(string(runes[:MaxMessageRunes]))
	}
	return message
}
