package errors

import (
	"errors"
	"net/http"

	"etlinspector/internal/detector"
	"etlinspector/internal/exporter"
	"etlinspector/internal/ingest"
	"etlinspector/internal/validation"
)

// Problem types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypeConflict         = "/errors/conflict"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Domain-specific problem types
const (
	TypeInvalidFile    = "/errors/file/invalid"
	TypeUnreadableFile = "/errors/file/unreadable"
	TypeSheetNotFound  = "/errors/file/sheet-not-found"
	TypeUnknownCheck   = "/errors/detection/unknown-check"
	TypeUnknownFormat  = "/errors/export/unknown-format"
	TypeReportNotFound = "/errors/report/not-found"
	TypeJobNotFound    = "/errors/job/not-found"
)

// Mapping ties a sentinel error to the problem it should produce.
type Mapping struct {
	Target error
	Status int
	Type   string
	Title  string
}

// Matches reports whether err wraps the mapping's target.
func (m Mapping) Matches(err error) bool {
	return errors.Is(err, m.Target)
}

// DefaultMappings covers the sentinels raised while validating, reading,
// analysing and exporting a file. Earlier entries win.
func DefaultMappings() []Mapping {
	return []Mapping{
		{validation.ErrTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "File Too Large"},
		{validation.ErrUnsupportedExtension, http.StatusUnsupportedMediaType, TypeUnsupportedMedia, "Unsupported File Type"},
		{ingest.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, TypeUnsupportedMedia, "Unsupported File Type"},
		{validation.ErrLockFile, http.StatusBadRequest, TypeInvalidFile, "Invalid File"},
		{validation.ErrEmptyFile, http.StatusBadRequest, TypeInvalidFile, "Invalid File"},
		{validation.ErrCorruptWorkbook, http.StatusBadRequest, TypeInvalidFile, "Invalid File"},
		{validation.ErrNotAFile, http.StatusBadRequest, TypeInvalidFile, "Invalid File"},
		{ingest.ErrEmptyFile, http.StatusBadRequest, TypeUnreadableFile, "Unreadable File"},
		{ingest.ErrNoHeader, http.StatusBadRequest, TypeUnreadableFile, "Unreadable File"},
		{ingest.ErrSheetNotFound, http.StatusBadRequest, TypeSheetNotFound, "Sheet Not Found"},
		{detector.ErrUnknownCheck, http.StatusBadRequest, TypeUnknownCheck, "Unknown Check"},
		{exporter.ErrUnknownFormat, http.StatusBadRequest, TypeUnknownFormat, "Unknown Export Format"},
		{exporter.ErrPDFUnavailable, http.StatusServiceUnavailable, TypeServiceDown, "PDF Export Unavailable"},
	}
}

func appErrorType(t ErrorType) string {
	switch t {
	case ErrTypeValidation:
		return TypeValidation
	case ErrTypeUnsupported:
		return TypeUnsupportedMedia
	case ErrTypeTooLarge:
		return TypePayloadTooLarge
	case ErrTypeParsing:
		return TypeUnreadableFile
	case ErrTypeNotFound:
		return TypeNotFound
	case ErrTypeConflict:
		return TypeConflict
	case ErrTypeUnavailable:
		return TypeServiceDown
	default:
		return TypeInternal
	}
}

func apiErrorType(code string, status int) string {
	switch code {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_FILE":
		return TypeValidation
	case "NOT_FOUND":
		return TypeNotFound
	case "RATE_LIMIT_EXCEEDED":
		return TypeRateLimit
	}
	switch status {
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	case http.StatusServiceUnavailable:
		return TypeServiceDown
	}
	if status >= 400 && status < 500 {
		return TypeValidation
	}
	return TypeInternal
}
