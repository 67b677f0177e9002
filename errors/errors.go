package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a bridged call the error occurred
type Phase string

const (
	PhaseTranslate Phase = "translate" // call shape and name translation
	PhaseMarshal   Phase = "marshal"   // host arguments to expression text
	PhaseEvaluate  Phase = "evaluate"  // engine evaluation
	PhaseLayout    Phase = "layout"    // array shape and index conversion
	PhaseLifetime  Phase = "lifetime"  // temporary binding bookkeeping
	PhaseLoad      Phase = "load"      // engine loading
	PhaseConfig    Phase = "config"    // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported    Kind = "unsupported"
	KindMalformedCall  Kind = "malformed_call"
	KindRejected       Kind = "rejected"
	KindLeak           Kind = "leak"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindShapeMismatch  Kind = "shape_mismatch"
	KindImmutable      Kind = "immutable"
	KindTypeMismatch   Kind = "type_mismatch"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInstantiation  Kind = "instantiation"
	KindInvalidData    Kind = "invalid_data"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Expr   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Expr != "" {
		b.WriteString(" in `")
		b.WriteString(e.Expr)
		b.WriteByte('`')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Expr sets the expression text involved
func (b *Builder) Expr(expr string) *Builder {
	b.err.Expr = expr
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Unsupported creates an unsupported argument error
func Unsupported(path []string, value any) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: fmt.Sprintf("%T", value),
		Detail: "no expression form for argument",
		Value:  value,
	}
}

// MalformedCall creates a translation error for a call whose shape cannot be translated
func MalformedCall(name, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseTranslate,
		Kind:   KindMalformedCall,
		Path:   []string{name},
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Evaluation wraps an engine failure for expr
func Evaluation(expr string, cause error) *Error {
	return &Error{
		Phase:  PhaseEvaluate,
		Kind:   KindRejected,
		Expr:   expr,
		Detail: "engine rejected expression",
		Cause:  cause,
	}
}

// Leak reports a temporary binding that could not be released
func Leak(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLifetime,
		Kind:   KindLeak,
		Path:   []string{name},
		Detail: fmt.Sprintf("binding %q was not released", name),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// ShapeMismatch creates a layout error for inconsistent shape metadata
func ShapeMismatch(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindShapeMismatch,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Immutable creates an error for a write to a host array published by reference
func Immutable(detail string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindImmutable,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error for value extraction
func TypeMismatch(phase Phase, goType, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// Load creates an engine loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Classification helpers. They walk the whole chain, including errors joined
// by multierr, and report on the first structured error of the given class.

// IsTranslation reports whether err was raised before the engine was reached.
func IsTranslation(err error) bool {
	return hasPhase(err, PhaseTranslate, PhaseMarshal)
}

// IsEvaluation reports whether err is an engine rejection.
func IsEvaluation(err error) bool {
	return hasPhase(err, PhaseEvaluate)
}

// IsLeak reports whether err carries an unreleased binding.
func IsLeak(err error) bool {
	for _, e := range flatten(err) {
		if e.Phase == PhaseLifetime && e.Kind == KindLeak {
			return true
		}
	}
	return false
}

// As is errors.As from the standard library, re-exported so callers that
// import this package under its own name keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func hasPhase(err error, phases ...Phase) bool {
	for _, e := range flatten(err) {
		for _, p := range phases {
			if e.Phase == p {
				return true
			}
		}
	}
	return false
}

// flatten collects every *Error reachable from err through Unwrap chains and
// multi-error containers.
func flatten(err error) []*Error {
	var out []*Error
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if e, ok := err.(*Error); ok {
			out = append(out, e)
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Errors() []error }:
			for _, inner := range u.Errors() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}
