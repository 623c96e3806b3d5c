package provider

import "fmt"

// Kind classifies a provider failure for the model-fallback loop.
type Kind int

const (
	// KindAuth is an authentication/authorization failure. Fatal: it cannot
	// succeed with a different model, so no retry and no fallback.
	KindAuth Kind = iota
	// KindTransient covers rate limits, 5xx responses, timeouts and network
	// failures. The loop advances to the next candidate model.
	KindTransient
	// KindSchemaMode means the backend refused structured-output mode. The
	// same attempt is retried once without the schema.
	KindSchemaMode
	// KindBadRequest covers all other 4xx responses. Fatal for the
	// invocation.
	KindBadRequest
)

// Error carries a user-safe message; raw backend bodies are logged, never
// surfaced to callers.
type Error struct {
	Kind    Kind
	Model   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (model %s): %s", e.Model, e.Message)
}

func newError(kind Kind, model, message string) *Error {
	return &Error{Kind: kind, Model: model, Message: message}
}

// IsKind reports whether err is a provider error of the given kind.
func IsKind(err error, kind Kind) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == kind
}
