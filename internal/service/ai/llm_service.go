package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/config"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
)

// Service wraps the LLM behind a compiled prompt chain.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the AI service and compiles its chat chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled reports whether SSE streaming answers are configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerateAnswer runs the chain once and returns the full answer text.
func (s *Service) GenerateAnswer(ctx context.Context, query string, history []chat.Turn, docContext string) (string, error) {
	input := buildChainInput(query, history, docContext)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated answer, length=%d", len(response.Content))
	return strings.TrimSpace(response.Content), nil
}

// StreamAnswer streams answer chunks via the configured chain.
func (s *Service) StreamAnswer(ctx context.Context, query string, history []chat.Turn, docContext string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := buildChainInput(query, history, docContext)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}

	return stream, nil
}

func buildChainInput(query string, history []chat.Turn, docContext string) map[string]any {
	return map[string]any{
		"system":  buildSystemPrompt(docContext),
		"history": buildHistoryMessages(history),
		"query":   query,
	}
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	const historyLimit = 10

	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > historyLimit {
		startIdx = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return history
}
