package common

// DBReader is a consistent read-only view of a backend. Callers must call Discard when done.
type DBReader interface {
	// Get returns ErrKeyNotFound when key has no value.
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	// Iterator visits keys in [start, end) in ascending order. A nil bound is open.
	Iterator(start, end []byte) (Iterator, error)

	Discard()
}

// Batch represents a group of writes which are applied atomically by Write.
// Callers must call Close on the batch when done.
//
// Given keys and values should be considered read-only, and must not be modified after
// passing them to the batch.
type Batch interface {
	// Set sets a key/value pair.
	Set(key, value []byte) error

	// Delete deletes a key/value pair.
	Delete(key []byte) error

	// Write applies the batch. Only Close() can be called after, other methods will error.
	Write() error

	// WriteSync applies the batch and flushes it to disk.
	WriteSync() error

	// Close closes the batch. It is idempotent.
	Close() error
}

// Iterator represents an iterator over a domain of keys. Callers must call Close when done.
type Iterator interface {
	// Domain returns the start (inclusive) and end (exclusive) limits of the iterator.
	Domain() (start []byte, end []byte)

	// Valid returns whether the current iterator is valid. Once invalid, the Iterator remains
	// invalid forever.
	Valid() bool

	// Next moves the iterator to the next key. If Valid returns false, this method will panic.
	Next()

	// Key returns the key at the current position. Panics if the iterator is invalid.
	Key() (key []byte)

	// Value returns the value at the current position. Panics if the iterator is invalid.
	Value() (value []byte)

	// Error returns the last error encountered by the iterator, if any.
	Error() error

	// Close closes the iterator, relasing any allocated resources.
	Close() error
}
