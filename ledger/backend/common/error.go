package common

import (
	"errors"
)

var (
	// ErrKeyNotFound is returned by readers when the key has no value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyEmpty is returned when attempting to use an empty or nil key.
	ErrKeyEmpty = errors.New("key cannot be empty")

	// ErrValueNil is returned when attempting to set a nil value.
	ErrValueNil = errors.New("value cannot be nil")

	// ErrBatchClosed is returned when a written or closed batch is used again.
	ErrBatchClosed = errors.New("batch has been written or closed")

	// ErrBackendClosed is returned by operations on a closed backend.
	ErrBackendClosed = errors.New("backend closed")
)

func ValidateKv(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	if value == nil {
		return ErrValueNil
	}
	return nil
}

func ValidateKey(key []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	return nil
}
