package qc

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/osprey/internal/catalog"
)

// Domain errors for QC operations.
var (
	ErrNotFound         = errors.New("folder has not entered qc")
	ErrNotesRequired    = errors.New("notes are required when a file has an issue")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidStatus    = errors.New("status must be passed (0) or failed (1)")
	ErrReviewerRequired = errors.New("reviewer is required")
	ErrInvalidFilter    = errors.New("invalid filename filter")
	ErrInvalidProject   = errors.New("invalid project id")
	ErrInvalidQuery     = errors.New("invalid query parameter")
	ErrProjectNotFound  = errors.New("project not found")
	ErrNotOwner         = errors.New("folder is claimed by another reviewer")
	ErrFileNotSampled   = errors.New("file is not in the folder sample")
	ErrNotPending       = errors.New("folder qc is already finalized")
	ErrIncomplete       = errors.New("sampled files are still pending review")
	ErrEmptyFolder      = errors.New("folder has no files")
	ErrNoEligibleFiles  = errors.New("no files match the filename filter")
	ErrInconsistent     = errors.New("qc counts are inconsistent")
)

// MapHTTPStatus maps QC and catalog errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotesRequired),
		errors.Is(err, ErrInvalidSeverity),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrReviewerRequired),
		errors.Is(err, ErrInvalidProject),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, catalog.ErrInvalidKey),
		errors.Is(err, catalog.ErrInvalidVariant):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrFileNotSampled),
		errors.Is(err, ErrProjectNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotPending),
		errors.Is(err, ErrIncomplete),
		errors.Is(err, ErrEmptyFolder),
		errors.Is(err, ErrNoEligibleFiles):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFilter):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
