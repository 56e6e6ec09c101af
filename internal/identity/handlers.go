package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/driver-intake/internal/extraction"
)

const (
	maxUploadSize = int64(20 << 20) // 20MB

	// statusClientClosedRequest is logged when the browser aborts a pending extraction
	statusClientClosedRequest = 499
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// WriteError writes an {"error": message} JSON response
func WriteError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	WriteJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes and user-facing messages
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, extraction.ErrCapture):
		WriteError(w, "The image could not be read. Please capture the document again.", http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, "The inference service timed out. Please try again.", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		WriteError(w, "Extraction cancelled.", statusClientClosedRequest)
	case errors.Is(err, extraction.ErrInference):
		WriteError(w, "Data extraction failed. Please try again.", http.StatusBadGateway)
	case errors.Is(err, ErrUnreadable):
		WriteError(w, ErrUnreadable.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrFieldCount):
		WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Internal error", "error", err)
		WriteError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ReadUpload reads the multipart file in field and determines its content type
func ReadUpload(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", err
	}

	f, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxUploadSize {
		return nil, "", errors.New("http: request body too large")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = http.DetectContentType(data)
		}
	}
	return data, strings.ToLower(strings.TrimSpace(contentType)), nil
}

// handleCapture serves the capture page, clearing the record slot when configured
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if s.clearOnEntry {
		if err := s.service.Delete(); err != nil {
			slog.Error("Error clearing record on entry", "error", err)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(captureHTML)
}

// handleManage serves the editor page
func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(manageHTML)
}

// handleStatic serves embedded CSS and JavaScript
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	http.StripPrefix("/static/", http.FileServerFS(getStaticFS())).ServeHTTP(w, r)
}

// handleExtract runs one extraction for an uploaded frame
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := ReadUpload(r, "file")
	if err != nil {
		slog.Error("Error reading upload", "error", err)
		errorMsg := "No image was provided. Please capture the document first."
		if strings.Contains(err.Error(), "request body too large") {
			errorMsg = "Image is too large. Maximum size is 20MB."
		}
		WriteError(w, errorMsg, http.StatusBadRequest)
		return
	}

	table, err := s.service.Extract(r.Context(), data, contentType)
	if err != nil {
		slog.Error("Error extracting identity", "content_type", contentType, "file_size", len(data), "error", err)
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, table)
}

// handleGetRecord renders the stored record as a table of zero or one rows
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	table, err := s.service.Load()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, table)
}

// saveRequest carries the edited row in column order
type saveRequest struct {
	Fields []string `json:"fields"`
}

// handleSaveRecord overwrites the stored record with the edited row
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	table, err := s.service.Save(req.Fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, table)
}

// handleDeleteRecord clears the stored record
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetDocumentImage returns the captured document image
func (s *Server) handleGetDocumentImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.DocumentImage()
	if err != nil {
		WriteError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}
