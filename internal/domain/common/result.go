// internal/domain/common/result.go
package common

// Status tags a Result as succeeded or failed.
type Status int

const (
	Failed Status = iota
	Succeeded
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Result is the uniform outcome of every repository operation.
// Errors never cross the repository boundary; they are folded into Message/Err.
type Result[T any] struct {
	Status  Status `json:"-"`
	Message string `json:"message"`
	Payload T      `json:"data"`
	Err     error  `json:"-"`
}

// Ok builds a succeeded result.
func Ok[T any](message string, payload T) Result[T] {
	return Result[T]{Status: Succeeded, Message: message, Payload: payload}
}

// Fail builds a failed result. err may be nil (e.g. "Item not found").
func Fail[T any](message string, err error) Result[T] {
	return Result[T]{Status: Failed, Message: message, Err: err}
}

func (r Result[T]) OK() bool { return r.Status == Succeeded }

// Empty is the payload of operations that only report success or failure.
type Empty = struct{}
