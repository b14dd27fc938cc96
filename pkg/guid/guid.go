// Package guid wraps github.com/google/uuid for the identifiers used
// outside the wire protocol's own textual signal IDs: producer session
// identifiers, control-channel correlation IDs, and test fixtures.
package guid

import "github.com/google/uuid"

// Guid is a standard UUID value.
type Guid uuid.UUID

// Empty is the zero-value Guid.
var Empty = Guid(uuid.Nil)

// New creates a new random Guid.
func New() Guid {
	return Guid(uuid.New())
}

// Parse decodes a Guid from its string form, returning an error on failure.
func Parse(value string) (Guid, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return Empty, err
	}

	return Guid(id), nil
}

// String returns the canonical "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" form.
func (g Guid) String() string {
	return uuid.UUID(g).String()
}

// IsEmpty reports whether g is the zero-value Guid.
func (g Guid) IsEmpty() bool {
	return g == Empty
}
