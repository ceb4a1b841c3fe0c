package intervalz

import (
	"errors"
	"fmt"
)

// Item contract violations.
var (
	ErrNegativeDelay = errors.New("item delay must not be negative")
	ErrEmptyKey      = errors.New("item key must not be empty")
)

// ItemError reports an invalid item handed to the engine.
// It captures the offending item and its position in the input list.
//
//nolint:govet // fieldalignment: struct layout optimized for readability over memory
type ItemError struct {
	// Item is the item that failed validation.
	Item Item

	// Index is the position of the item in the input list.
	Index int

	// Err is the violated constraint.
	Err error
}

func newItemError(index int, item Item, err error) *ItemError {
	return &ItemError{Item: item, Index: index, Err: err}
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (key %q, delay %s): %v", e.Index, e.Item.Key, e.Item.Delay, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is against the
// sentinel errors.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// ValidateItems checks every item and returns the first violation as an
// *ItemError.
func ValidateItems(items []Item) error {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return newItemError(i, it, err)
		}
	}
	return nil
}
