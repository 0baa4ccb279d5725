package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidImageFormat marks input bytes that could not be decoded as an
// image. It is fatal for the affected image only.
var ErrInvalidImageFormat = errors.New("invalid image format")

// ImageProcessingError wraps an error from an image processing operation.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing failed during %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// NewImageProcessingError creates a new ImageProcessingError.
func NewImageProcessingError(operation string, err error) *ImageProcessingError {
	return &ImageProcessingError{Operation: operation, Err: err}
}
