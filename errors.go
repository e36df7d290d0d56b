package splitnet

import "fmt"

// Error is a wrapper for specific types of errors for which there is no additional information
// necessary. These errors are defined as global variables.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

// These are the global errors that may be returned or panicked.
var (
	ErrRegisterWrongType = Error{"Type is not recognized"}
	ErrRegisterNilReturn = Error{"Function return is nil"}
	ErrRegisterTaken     = Error{"Type string is already registered"}

	ErrNetNotFinalized = Error{"Network has not been finalized"}
	ErrNetFinalized    = Error{"Network has already been finalized"}
	ErrNoBlocks        = Error{"Network has no blocks"}
	ErrNotSeeded       = Error{"Split variables have not been seeded"}
	ErrEmptyBatch      = Error{"Batch has no samples"}
	ErrNotFinite       = Error{"Value is not finite"}
	ErrNegativeIter    = Error{"Iteration is negative"}
)

// NilArgError documents errors resulting from certain arguments provided to a function being nil.
type NilArgError struct{ string }

func (err NilArgError) Error() string {
	return err.string + " is nil"
}

// SizeMismatchError results from two sizes that should be equal but are not, such as the output of
// one Block and the input of the next.
type SizeMismatchError struct {
	Expected, Given int
	Name            string
}

func (err SizeMismatchError) Error() string {
	return fmt.Sprintf("Size mismatch for %s: expected %d, given %d", err.Name, err.Expected, err.Given)
}
