package vector

import "errors"

var (
	// ErrIndexNotFound is returned when the configured index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
