package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/smart-intake/internal/ashby"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/extraction"
	"github.com/jonathan/smart-intake/internal/ingestion"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/jonathan/smart-intake/internal/interviews"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/orgctx"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// CollaboratorError reports that an external service failed while serving a request
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ErrNotConfigured is returned when a route needs an integration that has no credentials
type ErrNotConfigured struct {
	Integration string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("%s integration not configured", e.Integration)
}

// badRequestErrors are domain errors caused by missing or bad input
var badRequestErrors = []error{
	extraction.ErrJobDescriptionRequired,
	extraction.ErrSectionRequired,
	extraction.ErrNoDocuments,
	orgctx.ErrManagerRequired,
	interviews.ErrStageRequired,
	interviews.ErrStageIntentRequired,
	ingestion.ErrUnsupportedFileType,
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr    *ErrValidation
		intakeErr        *intake.ValidationError
		collaboratorErr  *CollaboratorError
		unavailableErr   *llm.UnavailableError
		duplicateErr     *db.DuplicateError
		notConfiguredErr *ErrNotConfigured
		fileErr          *ingestion.ExtractionError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &intakeErr), errors.As(err, &fileErr):
		return http.StatusBadRequest
	case errors.Is(err, intake.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &duplicateErr):
		return http.StatusConflict
	case errors.As(err, &collaboratorErr), errors.As(err, &unavailableErr):
		return http.StatusBadGateway
	case errors.As(err, &notConfiguredErr), errors.Is(err, ashby.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// validationFailure converts the first struct validation failure into an ErrValidation
func validationFailure(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &ErrValidation{Field: first.Field(), Message: first.Tag()}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}
