package dao

import "context"

// Service stores entities of type T keyed by K.
type Service[K comparable, T any] interface {
	// Save inserts or replaces t.
	Save(ctx context.Context, t *T) error
	// Load returns ErrNotFound for an unknown id.
	Load(ctx context.Context, id K) (*T, error)
	Delete(ctx context.Context, id K) error
	// List returns entities matching all parameters.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
