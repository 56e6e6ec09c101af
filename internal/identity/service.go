package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/driver-intake/internal/extraction"
)

// documentImageName is the fixed file name of the captured document image
const documentImageName = "document.jpg"

const defaultExtractTimeout = 60 * time.Second

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// SystemClock is the TimeSource backed by time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Service owns the record slot and its document image and runs extraction and editing against them
type Service struct {
	store      Store
	files      Storage
	extractor  extraction.Extractor
	builder    *extraction.Builder
	timeout    time.Duration
	timeSource TimeSource
}

// NewService creates a new Service with the default time source.
// A zero timeout uses the default of 60 seconds.
func NewService(store Store, files Storage, extractor extraction.Extractor, builder *extraction.Builder, timeout time.Duration) *Service {
	return NewServiceWithDeps(store, files, extractor, builder, timeout, SystemClock{})
}

// NewServiceWithDeps creates a new Service with a custom time source for testing
func NewServiceWithDeps(store Store, files Storage, extractor extraction.Extractor, builder *extraction.Builder, timeout time.Duration, timeSrc TimeSource) *Service {
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	return &Service{
		store:      store,
		files:      files,
		extractor:  extractor,
		builder:    builder,
		timeout:    timeout,
		timeSource: timeSrc,
	}
}

// Extract sends one captured image to the inference service and, on success, replaces the
// stored record with the raw reply. On any failure the slot is left untouched.
func (s *Service) Extract(ctx context.Context, imageData []byte, contentType string) (*Table, error) {
	req, err := s.builder.Build(imageData, contentType, s.timeSource.Now())
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	reply, err := s.extractor.Extract(ctx, req)
	if err != nil {
		slog.Error("Inference call failed",
			"provider", s.extractor.Name(),
			"image_size", len(req.Image),
			"elapsed", time.Since(started),
			"error", err,
		)
		if !errors.Is(err, extraction.ErrInference) {
			err = fmt.Errorf("%w: %w", extraction.ErrInference, err)
		}
		return nil, fmt.Errorf("extracting identity: %w", err)
	}
	slog.Info("Inference call finished", "provider", s.extractor.Name(), "elapsed", time.Since(started))

	if extraction.IsFailure(reply) {
		return nil, fmt.Errorf("%w: model could not read the document", extraction.ErrInference)
	}

	record, err := ParseRecord(reply)
	if err != nil {
		slog.Warn("Unreadable model reply", "provider", s.extractor.Name(), "reply", reply, "error", err)
		return nil, err
	}

	if _, err := s.files.Save(documentImageName, req.Image); err != nil {
		return nil, fmt.Errorf("saving document image: %w", err)
	}

	if err := s.store.Put(reply); err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}

	return newTable(record), nil
}

// Load reads the slot and renders it. An empty slot renders zero rows.
func (s *Service) Load() (*Table, error) {
	text, err := s.store.Get()
	if errors.Is(err, ErrEmpty) {
		return newTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	record, err := ParseRecord(text)
	if err != nil {
		slog.Warn("Stored record is unreadable", "error", err)
		return nil, err
	}
	return newTable(record), nil
}

// Save overwrites the slot with a record built from values in Columns order
func (s *Service) Save(fields []string) (*Table, error) {
	record, err := RecordFromFields(fields)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}

	if err := s.store.Put(string(data)); err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}
	return newTable(record), nil
}

// Delete clears the slot and removes the stored document image
func (s *Service) Delete() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing record: %w", err)
	}
	if err := s.files.Delete(documentImageName); err != nil {
		// Log error; the record itself is already cleared
		slog.Warn("Failed to delete document image", "error", err)
	}
	return nil
}

// DocumentImage returns the JPEG captured with the current record
func (s *Service) DocumentImage() ([]byte, error) {
	data, err := s.files.Get(documentImageName)
	if err != nil {
		return nil, fmt.Errorf("getting document image: %w", err)
	}
	return data, nil
}
