package ledger

import (
	"errors"
	"fmt"

	"ttm/internal/services"
)

var (
	// ErrPersistence marks a failed read or write against the store.
	ErrPersistence = services.ErrPersistence
	// ErrNotFound marks a missing project or entry.
	ErrNotFound = services.ErrNotFound
	// ErrInvalidName marks an empty project name after normalization.
	ErrInvalidName = fmt.Errorf("%w: project name must not be empty", services.ErrValidation)
	// ErrInvalidColor marks a color tag that is not #RRGGBB.
	ErrInvalidColor = fmt.Errorf("%w: color tag must be #RRGGBB", services.ErrValidation)
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

func persistErr(operation string, err error) error {
	return services.Wrap(ErrPersistence, "ledger", operation, "", err)
}

func notFound(kind, id string) error {
	return services.Wrap(ErrNotFound, "ledger", kind, id, nil)
}
