// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/askany/kvstore"
)

var (
	// ErrValidation marks a missing or malformed input the client can correct.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown session or question.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a transient failure to reach the key-value store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrForbidden marks an owner-only change attempted by another client.
	ErrForbidden = errors.New("forbidden")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// storeErr annotates a kvstore failure, classifying connectivity problems
// as ErrStoreUnavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, kvstore.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
