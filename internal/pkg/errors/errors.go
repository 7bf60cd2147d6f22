package errors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalid              = errors.New("invalid")
	ErrConflict             = errors.New("conflict")
	ErrInternal             = errors.New("internal")
	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
