package records

import (
	"errors"
	"fmt"
)

var (
	// ErrNoURL indicates an operation resolved neither a URL nor a resolver.
	ErrNoURL = errors.New("records: operation has no url")
	// ErrUnresolvedPlaceholder indicates a url kept a :name placeholder after substitution.
	ErrUnresolvedPlaceholder = errors.New("records: unresolved url placeholder")
	// ErrUnknownScope indicates a request scope outside record/store/controller.
	ErrUnknownScope = errors.New("records: unknown request scope")
	// ErrNoTransport indicates the model has no transport configured.
	ErrNoTransport = errors.New("records: transport not configured")
	// ErrUnsuccessful indicates the response failed the success check.
	ErrUnsuccessful = errors.New("records: response not successful")

	// ErrNoID is returned when an operation requires a record id.
	ErrNoID = errors.New("records: record has no id")
	// ErrUntyped is returned when a remote or identity operation needs a typed model.
	ErrUntyped = errors.New("records: model is untyped")
	// ErrNothingDirty is returned by Store.Save when no record is dirty.
	ErrNothingDirty = errors.New("records: nothing to save")
	// ErrLocalStore is returned when a remote operation is attempted on a local store.
	ErrLocalStore = errors.New("records: store is local")
	// ErrDestroyed is returned when operating on a destroyed record or store.
	ErrDestroyed = errors.New("records: destroyed")
	// ErrAborted is returned when a before-* listener vetoed the operation.
	ErrAborted = errors.New("records: aborted by listener")
	// ErrLoadSuperseded is returned by a load replaced by a newer one or by Abort.
	ErrLoadSuperseded = errors.New("records: load superseded")
	// ErrNoPage is returned by paging helpers when there is no page to move to.
	ErrNoPage = errors.New("records: no such page")
	// ErrIndexRange is returned for out of range positions.
	ErrIndexRange = errors.New("records: index out of range")
)

// ConfigError reports an operation that cannot be issued as configured.
type ConfigError struct {
	Scope Scope
	Op    string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("records: %s.%s: %v", e.Scope, e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteError wraps a transport failure, a validation veto or an
// unsuccessful response. Raw carries the response when one was received.
type RemoteError struct {
	Scope Scope
	Op    string
	Raw   any
	Err   error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("records: %s.%s failed: %v", e.Scope, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapRemote(scope Scope, op string, raw any, err error) error {
	if err == nil {
		return nil
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return err
	}
	return &RemoteError{Scope: scope, Op: op, Raw: raw, Err: err}
}
