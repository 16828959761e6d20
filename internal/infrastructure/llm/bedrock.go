package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicBedrockVersion = "bedrock-2023-05-31"

// BedrockInvoker is the subset of the Bedrock Runtime client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient calls a foundation model through Amazon Bedrock InvokeModel.
// The request and response bodies follow the model family encoded in the id prefix.
type BedrockClient struct {
	api         BedrockInvoker
	modelID     string
	temperature float64
	maxTokens   int
}

// NewBedrockClient loads AWS credentials from the default chain.
func NewBedrockClient(ctx context.Context, region, modelID string, temperature float64, maxTokens int) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewBedrockClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), modelID, temperature, maxTokens), nil
}

func NewBedrockClientWithAPI(api BedrockInvoker, modelID string, temperature float64, maxTokens int) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID, temperature: temperature, maxTokens: maxTokens}
}

func (c *BedrockClient) Name() string { return "bedrock:" + c.modelID }

func (c *BedrockClient) isOpenAIFamily() bool { return strings.HasPrefix(c.modelID, "openai.") }

func (c *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.requestBody(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to encode bedrock request: %w", err)
	}
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", c.modelID, err)
	}
	if c.isOpenAIFamily() {
		return parseChatCompletion(out.Body)
	}
	return parseAnthropicMessage(out.Body)
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

func (c *BedrockClient) requestBody(prompt string) ([]byte, error) {
	if c.isOpenAIFamily() {
		return json.Marshal(newChatRequest("", prompt, c.temperature, c.maxTokens))
	}
	return json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicBedrockVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: prompt}},
		}},
	})
}

func parseAnthropicMessage(body []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode anthropic response: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// chatMessage and chatRequest are the chat completions body used by the openai.* family.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

func newChatRequest(model, prompt string, temperature float64, maxTokens int) chatRequest {
	return chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			// Content is either a string or a list of {type,text} blocks.
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func parseChatCompletion(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	raw := resp.Choices[0].Message.Content
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var blocks []anthropicContent
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", fmt.Errorf("unexpected chat completion content: %w", err)
	}
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(block.Text)
	}
	return b.String(), nil
}
