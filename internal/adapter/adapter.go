// Package adapter translates a (prompt, optional source image) pair
// into a call against the Gemini generative model and normalizes the
// heterogeneous response into a GenerationResult.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/gemimg/gemimg/internal/imaging"
	"github.com/gemimg/gemimg/internal/log"
	"github.com/gemimg/gemimg/pkg/models"
)

// DefaultModel is the image-capable Gemini model the tool targets.
const DefaultModel = "gemini-2.0-flash-exp-image-generation"

var (
	ErrMissingCredential  = errors.New("no API key available")
	ErrGenerationFailed   = errors.New("image generation failed")
	ErrModificationFailed = errors.New("image modification failed")
)

// contentCaller is the slice of the genai client the adapter needs.
// *genai.Models satisfies it; tests substitute a fake.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

// Adapter holds the credential-bound client handle for the process
// lifetime. Each call is a single stateless request/response cycle:
// no retry, no backoff, no partial-result recovery.
type Adapter struct {
	caller contentCaller
	model  string
	logger *slog.Logger
}

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Adapter{caller: client.Models, model: model, logger: logger}, nil
}

// Generate sends a bare prompt and returns the normalized result. An
// empty prompt is forwarded verbatim; the model decides what to do
// with it.
func (a *Adapter) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	a.logger.Debug("sending generation request", "model", a.model, "prompt_len", len(req.Prompt))

	resp, err := a.caller.GenerateContent(ctx, a.model, genai.Text(req.Prompt), responseConfig())
	if err != nil {
		a.logger.Error("generation request failed", log.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	result, err := decodeParts(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	a.logger.Debug("generation complete", "has_image", result.HasImage(), "has_text", result.HasText())
	return result, nil
}

// Modify sends the ordered pair (instruction, source image). The
// request is validated locally first: a missing source image yields
// ErrNoUsableInput without any remote call.
func (a *Adapter) Modify(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a.logger.Debug("sending modification request", "model", a.model, "source_mime", req.Source.MIMEType)

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		{InlineData: &genai.Blob{MIMEType: req.Source.MIMEType, Data: req.Source.Data}},
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.caller.GenerateContent(ctx, a.model, contents, responseConfig())
	if err != nil {
		a.logger.Error("modification request failed", log.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrModificationFailed, err)
	}

	result, err := decodeParts(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModificationFailed, err)
	}

	a.logger.Debug("modification complete", "has_image", result.HasImage(), "has_text", result.HasText())
	return result, nil
}

// responseConfig asks the model for both text and image output.
func responseConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
}

// decodeParts walks the parts of the first candidate in order. Each
// text part overwrites the text field and each inline-data part
// overwrites the image field, so the last part of each kind wins.
// Earlier image parts are discarded on purpose.
func decodeParts(resp *genai.GenerateContentResponse) (*models.GenerationResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, fmt.Errorf("model returned no content")
	}

	result := &models.GenerationResult{}
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			result.Text = part.Text
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			if _, _, err := imaging.Decode(part.InlineData.Data); err != nil {
				return nil, err
			}
			result.Image = &models.ResultImage{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			}
		}
	}
	return result, nil
}
