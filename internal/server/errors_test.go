package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/smart-intake/internal/ashby"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/extraction"
	"github.com/jonathan/smart-intake/internal/ingestion"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/orgctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "jobTitle", Message: "required"}
	assert.Equal(t, "validation error: jobTitle - required", err.Error())
}

func TestCollaboratorError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CollaboratorError{Collaborator: "glean", Err: cause}
	assert.Equal(t, "glean request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "f", Message: "m"}, http.StatusBadRequest},
		{"service validation", &intake.ValidationError{Field: "comment", Message: "required"}, http.StatusBadRequest},
		{"not found", &intake.NotFoundError{What: "intake", ID: "x"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", &intake.NotFoundError{What: "draft", ID: "k"}), http.StatusNotFound},
		{"duplicate", &db.DuplicateError{What: "share", Err: errors.New("unique")}, http.StatusConflict},
		{"collaborator", &CollaboratorError{Collaborator: "ashby", Err: errors.New("boom")}, http.StatusBadGateway},
		{"generator unavailable", &llm.UnavailableError{Operation: "loop synthesis", Cause: errors.New("quota")}, http.StatusBadGateway},
		{"integration missing", &ErrNotConfigured{Integration: "ashby"}, http.StatusServiceUnavailable},
		{"ats key missing", ashby.ErrNotConfigured, http.StatusServiceUnavailable},
		{"missing job description", extraction.ErrJobDescriptionRequired, http.StatusBadRequest},
		{"missing manager", orgctx.ErrManagerRequired, http.StatusBadRequest},
		{"unsupported file", &ingestion.ExtractionError{FileName: "a.exe", Cause: ingestion.ErrUnsupportedFileType}, http.StatusBadRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationFailure_UsesJSONFieldNames(t *testing.T) {
	var req struct {
		JobTitle string `json:"jobTitle" validate:"required"`
	}
	err := newValidator().Struct(req)
	require.Error(t, err)

	var verr *ErrValidation
	require.ErrorAs(t, validationFailure(err), &verr)
	assert.Equal(t, "jobTitle", verr.Field)
	assert.Equal(t, "required", verr.Message)
}
