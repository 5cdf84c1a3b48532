package builder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"gaflow/internal/flow"
)

// LLMStepConfig configures an LLM-backed work step, generalizing the
// teacher's OpenAI node executor (internal/application/executor's prompt
// node) from a one-shot HTTP handler invocation to a flow.WorkFunc any
// branch can run at a step boundary.
type LLMStepConfig struct {
	Client   *openai.Client
	Model    string
	Prompt   func(ctx flow.BranchContext) string
	OnResult func(ctx flow.BranchContext, content string) error
}

// AddLLMWork adds a work step that sends Prompt(ctx) to the configured
// chat model and passes the first completion's content to OnResult,
// mirroring the teacher's "resolve API key, build request, call
// CreateChatCompletion, store output" sequence.
func (b *FlowBuilder) AddLLMWork(id int, cfg LLMStepConfig) *FlowBuilder {
	return b.AddWork(id, llmWorkFunc(cfg))
}

func llmWorkFunc(cfg LLMStepConfig) flow.WorkFunc {
	return func(ctx flow.BranchContext) (int, error) {
		prompt := ""
		if cfg.Prompt != nil {
			prompt = cfg.Prompt(ctx)
		}
		req := openai.ChatCompletionRequest{
			Model: cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}
		resp, err := cfg.Client.CreateChatCompletion(context.Background(), req)
		if err != nil {
			return 0, fmt.Errorf("builder: llm step: %w", err)
		}
		if len(resp.Choices) == 0 {
			return 0, fmt.Errorf("builder: llm step returned no choices")
		}
		if cfg.OnResult != nil {
			if err := cfg.OnResult(ctx, resp.Choices[0].Message.Content); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
}
