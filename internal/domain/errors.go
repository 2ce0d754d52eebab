package domain

import "fmt"

// TransportError reports a failed fetch of the bulletin page.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ContentNotFoundError means the page was fetched but the bulletin
// container was not in it, usually because the site layout changed.
type ContentNotFoundError struct {
	Selector string
}

func (e *ContentNotFoundError) Error() string {
	return fmt.Sprintf("bulletin content not found: no element matches %q", e.Selector)
}

// StorageError wraps a persistence failure. The surrounding transaction
// has been rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
