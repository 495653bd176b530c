package errs

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptArchive      = errors.New("corrupt archive")
	ErrInsufficientStorage = errors.New("insufficient storage")
	ErrCyclicDependency    = errors.New("cyclic dependency")
	ErrUnresolvedSymbol    = errors.New("unresolved symbol")
	ErrSessionCrashed      = errors.New("runtime session crashed")
	ErrUnsupportedCall     = errors.New("unsupported bridge call")
	ErrEngineInitFailed    = errors.New("audio engine init failed")
)

// Kind classifies an error by the subsystem and phase that produced it
type Kind int

const (
	Unknown Kind = iota
	ProvisioningError
	LoadError
	RuntimeFault
	BridgeTranslationError
	EngineInitFailed
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case ProvisioningError:
		return "provisioning_error"
	case LoadError:
		return "load_error"
	case RuntimeFault:
		return "runtime_fault"
	case BridgeTranslationError:
		return "bridge_translation_error"
	case EngineInitFailed:
		return "engine_init_failed"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind abort the startup sequence
func (k Kind) Fatal() bool {
	return k == ProvisioningError || k == LoadError
}

// Error carries the kind plus the operation and subject that failed
type Error struct {
	Kind    Kind
	Op      string
	Subject string
	Err     error
}

// New wraps err with a kind, an operation name and the subject it applied to
func New(kind Kind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Subject, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// SymbolError reports a required symbol that no loaded library exports
type SymbolError struct {
	Library string
	Symbol  string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q required by %s", e.Symbol, e.Library)
}

func (e *SymbolError) Unwrap() error {
	return ErrUnresolvedSymbol
}

// CycleError reports the libraries forming a dependency cycle
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Cycle)
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
