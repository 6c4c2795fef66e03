package domain

import "fmt"

// ValidationError marks a malformed or incomplete inbound activity.
// The inbox answers it with 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid activity: %s", e.Reason)
}

// UnsupportedActivityError marks an activity type the bridge refuses to
// translate. The inbox answers it with 501.
type UnsupportedActivityError struct {
	Type string
}

func (e *UnsupportedActivityError) Error() string {
	return fmt.Sprintf("unsupported activity type: %s", e.Type)
}

// UpstreamFetchError marks a failed fetch of a remote resource (an actor
// document, usually). The inbox answers it with 502.
type UpstreamFetchError struct {
	URL string
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// DeliveryError marks a failed signed delivery to a remote inbox. It
// carries the remote status code so callers can pass it through.
type DeliveryError struct {
	InboxURL   string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivering to %s: %v", e.InboxURL, e.Err)
	}
	return fmt.Sprintf("delivering to %s: remote answered %d", e.InboxURL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// StorageError wraps a datastore failure. The inbox answers it with 500.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
