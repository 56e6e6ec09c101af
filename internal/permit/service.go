package permit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/driver-intake/internal/identity"
)

const dateLayout = "2006-01-02"

// ErrInvalid is returned for registrations and permit requests missing required data
var ErrInvalid = errors.New("invalid request")

// IDGenerator generates unique IDs for permits and photo files
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random v4 UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Registration holds the form data of a driver registration
type Registration struct {
	NationalID  string
	Name        string
	TruckNumber string
	CargoType   string
}

// PermitRequest holds the form data of a permit request
type PermitRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Route    string `json:"route"`
	Purpose  string `json:"purpose"`
}

// Service handles driver registration and permit requests
type Service struct {
	db          DB
	photos      identity.Storage
	idGenerator IDGenerator
	timeSource  identity.TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, photos identity.Storage) *Service {
	return NewServiceWithDeps(db, photos, &uuidGenerator{}, identity.SystemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, photos identity.Storage, idGen IDGenerator, timeSrc identity.TimeSource) *Service {
	return &Service{
		db:          db,
		photos:      photos,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// photoExtension picks a file extension for a photo content type
func photoExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/heic", "image/heif":
		return ".heic"
	default:
		return ".jpg"
	}
}

// RegisterDriver stores the driver's photo and creates or replaces the driver.
// Re-registering a national ID replaces the previous data and photo.
func (s *Service) RegisterDriver(reg Registration, photo []byte, contentType string) (*Driver, error) {
	reg.NationalID = strings.TrimSpace(reg.NationalID)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.NationalID == "" || reg.Name == "" {
		return nil, fmt.Errorf("%w: national ID and name are required", ErrInvalid)
	}
	if len(photo) == 0 {
		return nil, fmt.Errorf("%w: capture a photo before registering", ErrInvalid)
	}

	now := s.timeSource.Now()
	createdAt := now
	previous, err := s.db.GetDriver(reg.NationalID)
	switch {
	case err == nil:
		createdAt = previous.CreatedAt
	case !errors.Is(err, ErrDriverNotFound):
		return nil, fmt.Errorf("getting driver: %w", err)
	}

	savedPhoto, err := s.photos.Save(s.idGenerator.Generate()+photoExtension(contentType), photo)
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}

	driver := &Driver{
		NationalID:  reg.NationalID,
		Name:        reg.Name,
		TruckNumber: strings.TrimSpace(reg.TruckNumber),
		CargoType:   strings.TrimSpace(reg.CargoType),
		Photo:       savedPhoto,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}

	if err := s.db.SaveDriver(driver); err != nil {
		// Clean up photo if database save fails
		s.photos.Delete(savedPhoto)
		return nil, fmt.Errorf("saving driver: %w", err)
	}

	if previous != nil && previous.Photo != "" && previous.Photo != savedPhoto {
		if err := s.photos.Delete(previous.Photo); err != nil {
			slog.Warn("Failed to delete previous photo", "photo", previous.Photo, "error", err)
		}
	}

	return driver, nil
}

// GetDriver retrieves a driver by national ID
func (s *Service) GetDriver(nationalID string) (*Driver, error) {
	driver, err := s.db.GetDriver(nationalID)
	if err != nil {
		return nil, fmt.Errorf("getting driver: %w", err)
	}
	return driver, nil
}

// ListDrivers returns all drivers
func (s *Service) ListDrivers() ([]*Driver, error) {
	drivers, err := s.db.ListDrivers()
	if err != nil {
		return nil, fmt.Errorf("listing drivers: %w", err)
	}
	return drivers, nil
}

// GetDriverPhoto returns the stored photo of a driver
func (s *Service) GetDriverPhoto(nationalID string) ([]byte, error) {
	driver, err := s.GetDriver(nationalID)
	if err != nil {
		return nil, err
	}
	data, err := s.photos.Get(driver.Photo)
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	return data, nil
}

// RequestPermit records a pending permit for a registered driver.
// The date must not be before today.
func (s *Service) RequestPermit(nationalID string, req PermitRequest) (*Permit, error) {
	driver, err := s.db.GetDriver(nationalID)
	if err != nil {
		return nil, fmt.Errorf("getting driver: %w", err)
	}

	now := s.timeSource.Now()
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), now.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrInvalid, req.Date)
	}
	if strings.TrimSpace(req.Route) == "" {
		return nil, fmt.Errorf("%w: route is required", ErrInvalid)
	}

	permit := &Permit{
		ID:         s.idGenerator.Generate(),
		DriverID:   driver.NationalID,
		DriverName: driver.Name,
		Date:       date.Format(dateLayout),
		TimeSlot:   strings.TrimSpace(req.TimeSlot),
		Route:      strings.TrimSpace(req.Route),
		Purpose:    strings.TrimSpace(req.Purpose),
		Status:     StatusPending,
		CreatedAt:  now,
	}

	if err := s.db.SavePermit(permit); err != nil {
		return nil, fmt.Errorf("saving permit: %w", err)
	}
	return permit, nil
}

// ListPermits returns the permits of a registered driver
func (s *Service) ListPermits(nationalID string) ([]*Permit, error) {
	if _, err := s.db.GetDriver(nationalID); err != nil {
		return nil, fmt.Errorf("getting driver: %w", err)
	}
	permits, err := s.db.ListPermits(nationalID)
	if err != nil {
		return nil, fmt.Errorf("listing permits: %w", err)
	}
	return permits, nil
}
