package storage

import "errors"

// Storage errors shared by the memory and Postgres implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Attestations and ledger entries are append-only; updates are
	// not allowed.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance is returned when a debit would drive an account
	// balance below zero. The failing operation leaves every balance unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
