package deletecheck

import "fmt"

// StoreError is a failure to read or write the registration store.
// It aborts the whole run.
type StoreError struct {
	Op  string
	Key string // empty for whole-set operations
	Err error
}

// Error implements error interface
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("registration store %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("registration store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *StoreError) Unwrap() error {
	return e.Err
}

// CallbackError is a failure of the deletion handler for one key.
// The key stays registered and is retried on the next run.
type CallbackError struct {
	Key string
	Err error
}

// Error implements error interface
func (e *CallbackError) Error() string {
	return fmt.Sprintf("deletion handler for %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying cause
func (e *CallbackError) Unwrap() error {
	return e.Err
}
