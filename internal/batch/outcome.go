package batch

import "errors"

// Failure classes returned by unit workers. Wrap them so the reason keeps the
// underlying detail: fmt.Errorf("%w: %v", ErrStatus, detail).
var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("unexpected status")
	ErrDecode    = errors.New("decode error")
	ErrStorage   = errors.New("storage error")
)

// Outcome is the result of a single unit. A nil Err means Success.
type Outcome[V any] struct {
	Key   string
	Value V
	Err   error
}

// Success builds a successful outcome for key.
func Success[V any](key string, value V) Outcome[V] {
	return Outcome[V]{Key: key, Value: value}
}

// Failure builds a failed outcome for key. A nil err is replaced by a generic one.
func Failure[V any](key string, err error) Outcome[V] {
	if err == nil {
		err = errors.New("unit failed")
	}
	return Outcome[V]{Key: key, Err: err}
}

// OK reports whether the outcome is a Success.
func (o Outcome[V]) OK() bool {
	return o.Err == nil
}

// Reason is the human-readable failure reason, empty on success.
func (o Outcome[V]) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
