package extraction

import (
	"context"
	"errors"
)

var (
	// ErrCapture is returned when the submitted image cannot be used as a still frame
	ErrCapture = errors.New("image capture unusable")

	// ErrInference is returned when the inference service fails or replies with the failure sentinel
	ErrInference = errors.New("inference failed")
)

// Extractor defines the interface for identity document extraction backends
type Extractor interface {
	// Name returns the provider and model identifier used for logging
	Name() string
	// Extract sends the request to the inference service and returns the reply text verbatim
	Extract(ctx context.Context, req *Request) (string, error)
	// Close closes the extractor and releases resources
	Close() error
}
