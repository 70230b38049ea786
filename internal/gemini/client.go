package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// Client is a leak photo classifier backed by the Gemini vision API.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	limiter   *rate.Limiter
	timeout   time.Duration
	modelName string
	logger    *zap.Logger
}

// Config for Gemini client
type Config struct {
	APIKey            string
	ModelName         string
	RequestsPerMinute int
	Timeout           time.Duration
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-1.5-flash"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 15
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig.Temperature = genai.Ptr[float32](0.2)
	model.GenerationConfig.MaxOutputTokens = genai.Ptr[int32](256)

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute))

	return &Client{
		client:    client,
		model:     model,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		timeout:   cfg.Timeout,
		modelName: cfg.ModelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Analyze sends the photo to the model once. Any transport or format problem is returned as an error.
func (c *Client) Analyze(ctx context.Context, image []byte) (*classifier.Analysis, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini rate limit wait: %w", err)
	}

	// genai.ImageData wants the subtype only, e.g. "jpeg"
	format := strings.TrimPrefix(http.DetectContentType(image), "image/")
	if strings.Contains(format, "/") {
		format = "jpeg"
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(AnalysisPrompt), genai.ImageData(format, image))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("empty response from gemini")
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, errors.New("unexpected response type from gemini")
	}

	analysis, err := parseAnalysis(string(textPart))
	if err != nil {
		c.logger.Warn("Failed to parse Gemini response",
			zap.Error(err),
			zap.String("original_response", string(textPart)))
		return nil, err
	}

	c.logger.Debug("Photo analyzed",
		zap.Bool("is_leak", analysis.IsLeak),
		zap.String("severity", string(analysis.Severity)),
		zap.Duration("latency", time.Since(start)))
	return analysis, nil
}

type analysisResponse struct {
	IsLeak      *bool           `json:"is_leak"`
	Severity    json.RawMessage `json:"severity"`
	Description string          `json:"description"`
}

// parseAnalysis decodes the model answer, tolerating markdown code fences.
// A missing is_leak counts as a leak and any severity outside the three
// buckets is bucketed as Medium.
func parseAnalysis(text string) (*classifier.Analysis, error) {
	cleanJSON := strings.TrimSpace(text)
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	cleanJSON = strings.TrimSpace(cleanJSON)

	var resp analysisResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}

	analysis := &classifier.Analysis{
		IsLeak:      resp.IsLeak == nil || *resp.IsLeak,
		Severity:    bucketSeverity(resp.Severity),
		Description: strings.TrimSpace(resp.Description),
		Source:      classifier.SourceGemini,
	}
	if analysis.Description == "" {
		analysis.Description = "Analyse terminée."
	}
	return analysis, nil
}

func bucketSeverity(raw json.RawMessage) models.Severity {
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		var score float64
		if err := json.Unmarshal(raw, &score); err != nil {
			return models.SeverityMedium
		}
		switch {
		case score < 1.5:
			return models.SeveritySmall
		case score < 2.5:
			return models.SeverityMedium
		default:
			return models.SeverityHigh
		}
	}
	sev, err := models.ParseSeverity(label)
	if err != nil || sev == models.SeverityUnknown {
		return models.SeverityMedium
	}
	return sev
}
