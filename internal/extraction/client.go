package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const extractionPrompt = `Analyze this invoice document and extract the following fields.
Respond with a single JSON object and nothing else:
{
  "title": "short descriptive title naming the vendor and service",
  "date": "payment due date in YYYY-MM-DD format",
  "amount": total amount due as a plain number
}
The due date is the date by which the invoice must be PAID, not the date
it was issued. If a field cannot be determined, use null for it.`

// mimeTypes maps supported file extensions to the MIME type sent to the
// model.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Result holds the fields extracted from an invoice document. Any field
// the model could not determine is nil.
type Result struct {
	Title   *string
	DueDate *time.Time
	Amount  *float64
}

// Client extracts invoice fields from a document
type Client interface {
	Extract(ctx context.Context, filename string, data []byte) (*Result, error)
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}

// geminiClient implements Client using the Gemini API
type geminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiClient creates a new extraction client for the given model
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extraction API key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	return &geminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// MIMETypeFor returns the model MIME type for a filename, or false when
// the extension is not supported.
func MIMETypeFor(filename string) (string, bool) {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return "", false
	}
	mime, ok := mimeTypes[strings.ToLower(filename[idx:])]
	return mime, ok
}

// Extract sends the document to the model and parses the response.
// Fields the model leaves out come back nil; a transport or decode
// failure returns an error and no result.
func (c *geminiClient) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	mime, ok := MIMETypeFor(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file type for extraction: %s", filename)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(extractionPrompt),
		genai.Blob{MIMEType: mime, Data: data},
	)
	if err != nil {
		c.logAvailableModels(ctx)
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("extraction returned an empty response")
	}

	result, err := parseResult(text)
	if err != nil {
		c.logger.Warn("Failed to parse extraction response",
			"filename", filename,
			"error", err)
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	c.logger.Info("Extracted invoice fields",
		"filename", filename,
		"has_title", result.Title != nil,
		"has_due_date", result.DueDate != nil,
		"has_amount", result.Amount != nil)
	return result, nil
}

// ListModels returns the names of models available to the configured
// API key. Used by operators to diagnose extraction failures.
func (c *geminiClient) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	it := c.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		names = append(names, m.Name)
	}
	return names, nil
}

// logAvailableModels logs which models the API key can reach. Helps
// diagnose a misconfigured model name after a failed request.
func (c *geminiClient) logAvailableModels(ctx context.Context) {
	names, err := c.ListModels(ctx)
	if err != nil {
		return
	}
	c.logger.Info("Available extraction models",
		"configured", c.model,
		"models", names)
}

// Close releases the underlying API connection
func (c *geminiClient) Close() error {
	return c.client.Close()
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
