package common

import (
	"errors"
	"fmt"
)

// Shared error categories. ErrInvalidInput marks configuration/request
// validation failures; ErrDatabase marks ledger read/write failures so
// callers can distinguish them from domain errors with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
