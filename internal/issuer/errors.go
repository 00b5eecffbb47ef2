package issuer

import (
	"errors"
	"fmt"

	"github.com/edvin/backoffice/internal/model"
)

// Kind classifies why a document could not be produced.
type Kind string

const (
	// KindUnsupported means no renderer is registered for the type.
	KindUnsupported Kind = "unsupported_certificate_type"
	// KindPrecondition means the customer data cannot satisfy the issuer.
	// Retrying without fixing the data never helps.
	KindPrecondition Kind = "precondition_failed"
	// KindIntegration means the issuing authority or its agent failed.
	KindIntegration Kind = "integration_failure"
)

// Sentinels for errors.Is against an *Error of the matching kind.
var (
	ErrUnsupportedType    = errors.New("unsupported certificate type")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrIntegrationFailure = errors.New("integration failure")
)

// Error is returned by renderers and the registry.
type Error struct {
	Kind    Kind
	Type    model.CertificateType
	Message string
	Err     error
}

func (e *Error) Error() string {
	var prefix string
	switch e.Kind {
	case KindUnsupported:
		prefix = "Unsupported certificate type"
	case KindPrecondition:
		prefix = "Precondition failed"
	default:
		prefix = "Integration failure"
	}
	msg := fmt.Sprintf("%s: %s", prefix, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnsupportedType:
		return e.Kind == KindUnsupported
	case ErrPreconditionFailed:
		return e.Kind == KindPrecondition
	case ErrIntegrationFailure:
		return e.Kind == KindIntegration
	}
	return false
}

// Retryable reports whether repeating the same attempt could succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindIntegration
}

func Unsupported(t model.CertificateType) *Error {
	return &Error{Kind: KindUnsupported, Type: t, Message: fmt.Sprintf("no renderer registered for %q", t)}
}

func Precondition(t model.CertificateType, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Type: t, Message: fmt.Sprintf(format, args...)}
}

func Integration(t model.CertificateType, message string, err error) *Error {
	return &Error{Kind: KindIntegration, Type: t, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
