package store

import "fmt"

// ErrDataAccess indicates the backing store was unreachable or rejected a
// statement. It aborts the current phase; callers decide whether to retry.
type ErrDataAccess struct {
	Op  string
	Err error
}

func (e ErrDataAccess) Error() string {
	return fmt.Sprintf("data access: %s: %v", e.Op, e.Err)
}

func (e ErrDataAccess) Unwrap() error {
	return e.Err
}

// ErrInvalidInput indicates a value rejected at the write boundary, such
// as an empty title or a negative price.
type ErrInvalidInput struct {
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}
