package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"magic-mirror/internal/types"
	"magic-mirror/log"
	apperrors "magic-mirror/pkg/errors"
	"magic-mirror/pkg/util"
)

const enhanceSystemPrompt = `You refine short style descriptions for an AI photo transformation service.
Given a feature and the user's raw description, rewrite it as a concise, concrete style instruction in English.
Keep the user's intent, do not add unrelated elements, and stay under 20 words.
Reply with JSON only: {"prompt": "<refined description>"}`

type enhanceReply struct {
	Prompt string `json:"prompt"`
}

// EnhancePrompt asks the LLM to turn a rough user description into a
// cleaner style instruction. On any failure the original prompt is
// returned so generation can proceed unpolished.
func (c *Client) EnhancePrompt(ctx context.Context, feature types.Feature, prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", apperrors.New(apperrors.CodeMissingPrompt, "please describe the style you want")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enhanceSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("feature: %s\ndescription: %s", feature, trimmed)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		log.GetLogger().Warn("prompt enhancement request failed, using raw prompt",
			zap.String("feature", string(feature)), zap.Error(err))
		return trimmed, apperrors.Wrap(apperrors.CodePromptEnhance, "Prompt enhancement failed", err)
	}
	if len(resp.Choices) == 0 {
		return trimmed, apperrors.New(apperrors.CodePromptEnhance, "Prompt enhancement returned no choices")
	}

	var reply enhanceReply
	raw := util.ExtractJsonFromText(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &reply); err != nil || strings.TrimSpace(reply.Prompt) == "" {
		log.GetLogger().Warn("prompt enhancement reply unparseable, using raw prompt",
			zap.String("reply", resp.Choices[0].Message.Content))
		return trimmed, apperrors.Wrap(apperrors.CodePromptEnhance, "Prompt enhancement reply unparseable", err)
	}
	return strings.TrimSpace(reply.Prompt), nil
}
