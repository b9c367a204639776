package docstore

import (
	"errors"
	"fmt"

	"goflare.io/storefront/models"
)

// RemoteError is a failed gateway call. It matches both its kind
// (models.ErrRemoteQuery or models.ErrRemoteWrite) and the underlying cause.
type RemoteError struct {
	Op         string
	Collection string
	Kind       error
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("docstore: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func queryError(op, collection string, err error) error {
	return remoteError(op, collection, models.ErrRemoteQuery, err)
}

func writeError(op, collection string, err error) error {
	return remoteError(op, collection, models.ErrRemoteWrite, err)
}

func remoteError(op, collection string, kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrAlreadyExists) || errors.Is(err, models.ErrValidation) {
		return err
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Collection: collection, Kind: kind, Err: err}
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, models.ErrNotFound)
}

func alreadyExists(collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, models.ErrAlreadyExists)
}

func invalidDocument(err error) error {
	return models.Invalid("document is not JSON encodable: %v", err)
}
