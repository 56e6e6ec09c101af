package extraction

import (
	"encoding/base64"
	"time"
)

const (
	defaultMaxEdge     = 1600
	defaultTemperature = 0.2
)

// Request is a fully built inference request: instruction text plus one inline JPEG frame
type Request struct {
	Model       string
	System      string
	Prompt      string
	Image       []byte // JPEG encoded
	MIMEType    string
	Temperature float64
}

// ImageBase64 returns the image payload as standard base64
func (r *Request) ImageBase64() string {
	return base64.StdEncoding.EncodeToString(r.Image)
}

// DataURL returns the image as an inline data reference
func (r *Request) DataURL() string {
	return "data:" + r.MIMEType + ";base64," + r.ImageBase64()
}

// Builder turns captured images into inference requests
type Builder struct {
	model   string
	maxEdge int
}

// NewBuilder creates a Builder for the given model identifier.
// maxEdge bounds the longest image edge in pixels; zero uses the default and a negative value disables scaling.
func NewBuilder(model string, maxEdge int) *Builder {
	if maxEdge == 0 {
		maxEdge = defaultMaxEdge
	}
	return &Builder{model: model, maxEdge: maxEdge}
}

// Build validates that imageData decodes as a still frame and embeds it with the instruction prompt
func (b *Builder) Build(imageData []byte, contentType string, now time.Time) (*Request, error) {
	jpegData, err := prepareImage(imageData, contentType, b.maxEdge)
	if err != nil {
		return nil, err
	}

	return &Request{
		Model:       b.model,
		System:      systemInstruction,
		Prompt:      buildPrompt(now),
		Image:       jpegData,
		MIMEType:    "image/jpeg",
		Temperature: defaultTemperature,
	}, nil
}
