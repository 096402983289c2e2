package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

var (
	// ErrNoIncludePatterns indicates an empty include pattern list
	ErrNoIncludePatterns = errors.New("no include patterns")

	// ErrInvalidEntityKind indicates an unsupported entity kind
	ErrInvalidEntityKind = errors.New("invalid entity kind")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateIndex(&cfg.Index); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	// An empty include list would index nothing, which is never intended.
	// Ignore patterns may be empty.
	if len(cfg.Include) == 0 {
		return fmt.Errorf("%w: at least one include pattern required", ErrNoIncludePatterns)
	}
	return nil
}

func validateIndex(cfg *IndexConfig) error {
	validKinds := map[string]bool{
		storage.EntityClass:    true,
		storage.EntityEnum:     true,
		storage.EntityFunction: true,
		storage.EntityTypedef:  true,
	}

	var errs []error
	for _, kind := range cfg.Entities {
		if !validKinds[kind] {
			errs = append(errs, fmt.Errorf("%w: %s (valid: class, enum, function, typedef)", ErrInvalidEntityKind, kind))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
