// Package errors provides structured error types for the scicom bridge.
//
// Errors are categorized by Phase (where in a bridged call the error occurred)
// and Kind (error category). The three failure classes a caller needs to tell
// apart map onto phases:
//
//   - translation errors (PhaseTranslate, PhaseMarshal) are raised before the
//     engine sees any expression and never corrupt bridge state
//   - evaluation errors (PhaseEvaluate) wrap an engine rejection together with
//     the expression text that was rejected
//   - leaks (PhaseLifetime, KindLeak) report a temporary binding that could not
//     be released from the engine namespace
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindUnsupported).
//		Path("args", "2").
//		GoType("chan int").
//		Detail("no expression form").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Evaluation("mean(x, trim = )", cause)
//	err := errors.MalformedCall("x=", "assignment takes exactly one value, got %d", n)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
