package domain

import (
	"errors"
)

// Failure modes of the external collaborators. Provider and storage errors
// are transient and retried up to the job retry cap; unsupported images are
// terminal and never retried.
var (
	ErrProvider           = errors.New("ocr provider error")
	ErrProviderQuota      = errors.New("ocr provider quota exceeded")
	ErrUnsupportedImage   = errors.New("unsupported image format")
	ErrStorageUnavailable = errors.New("image storage unavailable")
	ErrImageNotFound      = errors.New("image not found")
)
