package permit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/driver-intake/internal/identity"
)

// Router is implemented by servers that accept additional authenticated routes
type Router interface {
	Handle(pattern string, handler http.HandlerFunc)
}

// Handlers serves the driver registry and permit API
type Handlers struct {
	service *Service
}

// NewHandlers creates Handlers for service
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the driver and permit routes on router
func (h *Handlers) RegisterRoutes(router Router) {
	router.Handle("GET /api/drivers/{id}/photo", h.handleGetDriverPhoto)
	router.Handle("GET /api/drivers/{id}/permits", h.handleListPermits)
	router.Handle("POST /api/drivers/{id}/permits", h.handleRequestPermit)
	router.Handle("GET /api/drivers/{id}", h.handleGetDriver)
	router.Handle("GET /api/drivers", h.handleListDrivers)
	router.Handle("POST /api/drivers", h.handleRegisterDriver)
}

// writeServiceError maps service errors onto status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDriverNotFound):
		identity.WriteError(w, "Driver not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalid):
		identity.WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Internal error", "error", err)
		identity.WriteError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleRegisterDriver handles a multipart registration with a captured photo
func (h *Handlers) handleRegisterDriver(w http.ResponseWriter, r *http.Request) {
	photo, contentType, err := identity.ReadUpload(r, "photo")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		slog.Error("Error reading registration form", "error", err)
		identity.WriteError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	driver, err := h.service.RegisterDriver(Registration{
		NationalID:  r.FormValue("national_id"),
		Name:        r.FormValue("name"),
		TruckNumber: r.FormValue("truck_number"),
		CargoType:   r.FormValue("cargo_type"),
	}, photo, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	identity.WriteJSON(w, http.StatusCreated, driver)
}

// handleListDrivers returns all registered drivers
func (h *Handlers) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.service.ListDrivers()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	identity.WriteJSON(w, http.StatusOK, drivers)
}

// handleGetDriver returns one driver
func (h *Handlers) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	driver, err := h.service.GetDriver(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	identity.WriteJSON(w, http.StatusOK, driver)
}

// handleGetDriverPhoto returns the registration photo of a driver
func (h *Handlers) handleGetDriverPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GetDriverPhoto(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, identity.ErrFileNotFound) {
			identity.WriteError(w, "Photo not found", http.StatusNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

// handleRequestPermit records a permit request for a driver
func (h *Handlers) handleRequestPermit(w http.ResponseWriter, r *http.Request) {
	var req PermitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		identity.WriteError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	permit, err := h.service.RequestPermit(r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	identity.WriteJSON(w, http.StatusCreated, permit)
}

// handleListPermits returns the permits of a driver
func (h *Handlers) handleListPermits(w http.ResponseWriter, r *http.Request) {
	permits, err := h.service.ListPermits(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	identity.WriteJSON(w, http.StatusOK, permits)
}
