package idgen

import "github.com/google/uuid"

// NewFunc generates a random (v4) UUID string.
var NewFunc = uuid.NewString

// New returns a fresh identifier. Identifiers are never reused.
func New() string { return NewFunc() }
