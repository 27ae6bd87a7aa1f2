package models

import (
	"errors"
	"slices"
)

var (
	ErrNoUsableInput        = errors.New("no source image available")
	ErrUnsupportedImageType = errors.New("unsupported image type")
)

// MIME types accepted for source images.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

func AcceptedMIMETypes() []string {
	return []string{MIMEPNG, MIMEJPEG}
}

// SourceImage is an image supplied by the user, either uploaded from
// disk or reused from a previous generation.
type SourceImage struct {
	Data     []byte
	MIMEType string
}

// GenerationRequest is built once per user action and not mutated
// afterwards. A nil Source means plain text-to-image generation.
type GenerationRequest struct {
	Prompt string
	Source *SourceImage
}

func NewRequest(prompt string) *GenerationRequest {
	return &GenerationRequest{Prompt: prompt}
}

func NewModifyRequest(prompt string, source *SourceImage) *GenerationRequest {
	return &GenerationRequest{Prompt: prompt, Source: source}
}

// Validate checks a modification request before any remote call is
// made. A missing source image must fail locally so the user gets
// guidance instead of a remote error.
func (r *GenerationRequest) Validate() error {
	if r.Source == nil || len(r.Source.Data) == 0 {
		return ErrNoUsableInput
	}
	if !slices.Contains(AcceptedMIMETypes(), r.Source.MIMEType) {
		return ErrUnsupportedImageType
	}
	return nil
}

// ResultImage holds the inline image bytes exactly as returned by the
// model together with the MIME type the model declared.
type ResultImage struct {
	Data     []byte
	MIMEType string
}

// GenerationResult is the normalized model response. Both fields are
// independently optional: an absent image means the response carried
// no inline-data part.
type GenerationResult struct {
	Image *ResultImage
	Text  string
}

func (r *GenerationResult) HasImage() bool {
	return r.Image != nil && len(r.Image.Data) > 0
}

func (r *GenerationResult) HasText() bool {
	return r.Text != ""
}
