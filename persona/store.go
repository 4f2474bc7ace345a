package persona

import "errors"

// ErrVersionExists is returned when saving a version that is already stored.
var ErrVersionExists = errors.New("persona version already exists")

// ErrProtected is returned when an upload targets a built-in or bound persona.
var ErrProtected = errors.New("persona id is protected")

// ErrNotFound is returned when a persona or version is not stored.
var ErrNotFound = errors.New("persona not found")

// Store persists uploaded persona definitions by id and version.
type Store interface {
	// Save persists a definition. Saving an identical definition again is a
	// no-op; different content under a stored version returns ErrVersionExists.
	Save(def *Definition) error

	// Get retrieves the latest version of a definition.
	Get(id string) (*Definition, error)

	// GetVersion retrieves a specific version.
	GetVersion(id, version string) (*Definition, error)

	// GetByHash returns the definition with the given content hash, or nil.
	GetByHash(hash string) (*Definition, error)

	// ListVersions returns all versions of a persona, sorted.
	ListVersions(id string) ([]string, error)

	// IDs returns every stored persona id, sorted.
	IDs() ([]string, error)
}
