package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingInput marks a required directory or file that is absent from
	// the source archive. Fatal before any output is written.
	ErrMissingInput = errors.New("missing input")
	// ErrIntegrity marks an inventory/manifest mismatch, such as a metadata
	// entry with no primary file.
	ErrIntegrity = errors.New("integrity error")
	// ErrPartialWrite marks an I/O failure while writing one output archive.
	// Archives completed before the failure remain valid.
	ErrPartialWrite = errors.New("partial write")
	// ErrConfiguration marks invalid or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid caller-supplied arguments.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
