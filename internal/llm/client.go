package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ImageInput is an inline image delivered to the model.
type ImageInput struct {
	// Format is the image type without the "image/" prefix, e.g. "png".
	Format string
	Data   []byte
}

// ImageOutput is an inline image returned by the render capability.
type ImageOutput struct {
	MIMEType string
	Data     []byte
}

// Client is an abstraction over the external generation capabilities. Both
// pipeline stages go through it: Stage 1 uses GenerateJSON for the
// structured layout response, Stage 2 uses GenerateImage for the final
// composite.
type Client interface {
	// GenerateJSON sends a prompt plus optional image and returns the raw
	// JSON text of the response.
	GenerateJSON(ctx context.Context, prompt string, image *ImageInput, tier ModelTier) (string, error)
	// GenerateImage sends a prompt plus source image and returns the
	// rendered image bytes.
	GenerateImage(ctx context.Context, prompt string, image *ImageInput) (*ImageOutput, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateJSON generates a JSON response using the specified model tier.
// Errors are returned classified per the boundary taxonomy.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, image *ImageInput, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", &PermanentError{Class: ClassPermanent, Cause: fmt.Errorf("no model configured for tier %s", tier)}
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		parts = append(parts, genai.ImageData(image.Format, image.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", Classify(err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GenerateImage sends a prompt plus source image to the image model and
// returns the first inline image part of the response.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, image *ImageInput) (*ImageOutput, error) {
	modelName := c.config.GetModel(TierImage)
	if modelName == "" {
		return nil, &PermanentError{Class: ClassPermanent, Cause: fmt.Errorf("no model configured for tier %s", TierImage)}
	}

	model := c.client.GenerativeModel(modelName)

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		parts = append(parts, genai.ImageData(image.Format, image.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, Classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &MalformedResponseError{Detail: "no candidates in response"}
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			return &ImageOutput{MIMEType: blob.MIMEType, Data: blob.Data}, nil
		}
	}
	return nil, &MalformedResponseError{Detail: "response contains no image part"}
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &MalformedResponseError{Detail: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &MalformedResponseError{Detail: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", &MalformedResponseError{Detail: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}
