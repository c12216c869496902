package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// SpamAnalysisResponse represents the structured response from the LLM
type SpamAnalysisResponse struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg config.OpenAIConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *OpenAIClient {
	return &OpenAIClient{
		client:        openai.NewClient(cfg.APIKey),
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   cfg.MaxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are a spam detection system for a small clinic's website forms. Analyze the following form submission and determine if it's spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- score: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of why you think it's spam or not)

Form submission:
Name: %s
Email: %s
Message:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// AnalyzeMessage analyzes a form submission to determine if it's spam
func (c *OpenAIClient) AnalyzeMessage(ctx context.Context, msg *core.Message) (*core.SpamAnalysisResult, error) {
	body := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.Name, msg.Email, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a spam detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	analysisResponse, err := parseAnalysisResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &core.SpamAnalysisResult{
		IsSpam:       analysisResponse.IsSpam,
		Score:        analysisResponse.Score,
		Confidence:   analysisResponse.Confidence,
		Explanation:  analysisResponse.Explanation,
		AnalyzedAt:   time.Now(),
		ModelUsed:    c.modelName,
		ProcessingID: resp.ID,
	}, nil
}

// parseAnalysisResponse decodes the LLM's JSON reply, tolerating prose
// wrapped around the JSON object
func parseAnalysisResponse(text string) (*SpamAnalysisResponse, error) {
	var analysisResponse SpamAnalysisResponse
	if err := json.Unmarshal([]byte(text), &analysisResponse); err == nil {
		return &analysisResponse, nil
	}

	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart < 0 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &analysisResponse); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &analysisResponse, nil
}
