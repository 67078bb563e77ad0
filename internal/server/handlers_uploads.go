package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/extraction"
	"github.com/jonathan/smart-intake/internal/ingestion"
)

const (
	// maxUploadBytes bounds one multipart upload request
	maxUploadBytes = 32 << 20
	// multipartMemory is kept in memory before parts spill to disk
	multipartMemory = 8 << 20
)

// parseUpload reads a multipart form, rejecting oversized bodies
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ErrValidation{Field: "files", Message: "upload is too large"}
		}
		return &ErrValidation{Field: "body", Message: "invalid multipart form: " + err.Error()}
	}
	return nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleProcessUploads extracts the text of every uploaded file and reads a
// hiring brief out of the combined documents
func (s *Server) handleProcessUploads(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.errorFrom(w, r, &ErrValidation{Field: "files", Message: "No files provided"})
		return
	}

	files := make([]ingestion.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			s.errorFrom(w, r, &ErrValidation{Field: "files", Message: "could not read " + fh.Filename})
			return
		}
		files = append(files, ingestion.File{Name: fh.Filename, Data: data})
	}

	texts, err := ingestion.ExtractAll(r.Context(), files)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	docs := make([]extraction.Document, len(texts))
	for i, t := range texts {
		docs[i] = extraction.Document{FileName: t.FileName, Text: t.Text}
	}
	result, err := s.extractor.ProcessDocuments(r.Context(), docs)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":        true,
		"data":           result.Brief,
		"filesProcessed": result.FilesProcessed,
		"fallback":       result.Fallback,
	})
}

// uploadMetadata is the optional "metadata" form field of a saved upload
type uploadMetadata struct {
	ExtractedData json.RawMessage `json:"extractedData,omitempty"`
	IntakeID      string          `json:"intakeId,omitempty"`
}

// handleSaveUpload stores one uploaded file with whatever was extracted from it
func (s *Server) handleSaveUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.errorFrom(w, r, &ErrValidation{Field: "file", Message: "No file provided"})
		return
	}
	fh := headers[0]
	data, err := readPart(fh)
	if err != nil {
		s.errorFrom(w, r, &ErrValidation{Field: "file", Message: "could not read " + fh.Filename})
		return
	}

	var meta uploadMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			s.errorFrom(w, r, &ErrValidation{Field: "metadata", Message: "invalid JSON"})
			return
		}
	}

	upload := &db.UploadedFile{
		UserID:        r.FormValue("userId"),
		FileName:      fh.Filename,
		FileType:      fh.Header.Get("Content-Type"),
		FileSize:      fh.Size,
		FileContent:   data,
		ExtractedData: meta.ExtractedData,
	}
	if upload.UserID == "" {
		upload.UserID = actor(r).Email
	}
	if meta.IntakeID != "" {
		id, err := uuid.Parse(meta.IntakeID)
		if err != nil {
			s.errorFrom(w, r, &ErrValidation{Field: "intakeId", Message: "must be a UUID"})
			return
		}
		upload.IntakeID = &id
	}

	saved, err := s.intakes.SaveUpload(r.Context(), upload)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{"success": true, "file": saved})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	filter := db.UploadFilter{
		UserID: r.URL.Query().Get("userId"),
		Limit:  db.DefaultUploadListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorFrom(w, r, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	files, err := s.intakes.Uploads(r.Context(), filter)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if files == nil {
		files = []db.UploadedFile{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"files": files})
}
