package instruct

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"google.golang.org/genai"
)

// BackendConfig carries the per-call generation settings the core hands to
// a backend. Transport, auth and model hosting are the backend's concern.
type BackendConfig struct {
	Model      string
	Parameters map[string]string // temperature, topK, topP, maxOutputTokens
}

// Backend is the generation capability the extraction engine drives. It
// receives the conversation plus the portable schema and returns raw text,
// normally JSON. Implementations must honor ctx cancellation.
type Backend interface {
	Invoke(ctx context.Context, messages []*Message, schema *PortableSchema, cfg BackendConfig) ([]byte, error)
}

// GenaiBackend implements Backend using the Gemini API via Google GenAI.
type GenaiBackend struct {
	client *genai.Client
	log    *slog.Logger
}

// NewGenaiBackend wraps a genai client. A nil logger falls back to
// slog.Default().
func NewGenaiBackend(client *genai.Client, log *slog.Logger) *GenaiBackend {
	if log == nil {
		log = slog.Default()
	}
	return &GenaiBackend{client: client, log: log}
}

// Invoke implements Backend against the Gemini generate-content API.
func (g *GenaiBackend) Invoke(ctx context.Context, messages []*Message, schema *PortableSchema, cfg BackendConfig) ([]byte, error) {
	if g.client == nil {
		return nil, fmt.Errorf("client not initialized")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	var contents []*genai.Content
	for _, msg := range messages {
		var parts []*genai.Part
		for _, part := range msg.Parts {
			switch part.Type {
			case "text":
				parts = append(parts, genai.NewPartFromText(part.Text))
			case "image":
				parts = append(parts, genai.NewPartFromBytes(part.Data, part.MimeType))
			case "file":
				file := genai.File{URI: part.FileURI, MIMEType: part.MimeType}
				parts = append(parts, genai.NewPartFromFile(file))
			}
		}
		if len(parts) == 0 {
			continue
		}
		role := genai.RoleUser
		if msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(role)))
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no valid content provided")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if err := applyParameters(config, cfg.Parameters); err != nil {
		return nil, err
	}

	g.log.Debug("Generating content", "model", modelName, "content_count", len(contents))
	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in candidate content")
	}
	part := candidate.Content.Parts[0]
	if part.Text == "" {
		return nil, fmt.Errorf("no text in first part of response")
	}

	g.log.Debug("Generated content", "response_length", len(part.Text))
	return []byte(part.Text), nil
}

// applyParameters validates and applies the generation parameters that may
// accompany a call.
func applyParameters(config *genai.GenerateContentConfig, params map[string]string) error {
	if params == nil {
		return nil
	}
	if temp, exists := params["temperature"]; exists {
		tempFloat, err := strconv.ParseFloat(temp, 32)
		if err != nil {
			return fmt.Errorf("invalid temperature parameter '%s': %w", temp, err)
		}
		if tempFloat < 0 || tempFloat > 1 {
			return fmt.Errorf("temperature parameter '%v' must be between 0.0 and 1.0", tempFloat)
		}
		val := float32(tempFloat)
		config.Temperature = &val
	}
	if topK, exists := params["topK"]; exists {
		topKFloat, err := strconv.ParseFloat(topK, 32)
		if err != nil {
			return fmt.Errorf("invalid topK parameter '%s': %w", topK, err)
		}
		if topKFloat <= 0 {
			return fmt.Errorf("topK parameter '%v' must be greater than 0", topKFloat)
		}
		val := float32(topKFloat)
		config.TopK = &val
	}
	if topP, exists := params["topP"]; exists {
		topPFloat, err := strconv.ParseFloat(topP, 32)
		if err != nil {
			return fmt.Errorf("invalid topP parameter '%s': %w", topP, err)
		}
		if topPFloat < 0 || topPFloat > 1 {
			return fmt.Errorf("topP parameter '%v' must be between 0.0 and 1.0", topPFloat)
		}
		val := float32(topPFloat)
		config.TopP = &val
	}
	if maxTokens, exists := params["maxOutputTokens"]; exists {
		maxTokensInt, err := strconv.Atoi(maxTokens)
		if err != nil {
			return fmt.Errorf("invalid maxOutputTokens parameter '%s': %w", maxTokens, err)
		}
		if maxTokensInt <= 0 {
			return fmt.Errorf("maxOutputTokens parameter '%d' must be greater than 0", maxTokensInt)
		}
		config.MaxOutputTokens = int32(maxTokensInt)
	}
	return nil
}
