// Package bridge turns host calls into expressions for an embedded engine.
//
// A call is one of three shapes. A name ending in "=" assigns its single
// argument; a name with no arguments pulls a value; anything else invokes an
// engine function:
//
//	b := bridge.New(eng)
//	b.Dispatch(ctx, "x=", bridge.Number(5))     // x <- 5
//	x, _ := b.Pull(ctx, "x")                     // x
//	m, _ := b.Invoke(ctx, "mean", x)             // mean(sc_1f0e...)
//
// Arguments form a closed set (see Arg). Literals are written into the
// expression text. Values without a literal form, such as results of earlier
// calls, symbols and host arrays, are published under temporary names first.
// Every temporary a call publishes is unbound before the call returns, on
// every exit path. If releasing one fails the call still returns its result,
// and the error satisfies errors.IsLeak.
//
// Host arrays are passed by reference: the engine sees a column-major view
// of the host storage, and the array is frozen from then on.
//
// Attribute access goes through Value.Attr. A value read as an attribute
// remembers its parent, so
//
//	a, _ := x.Attr().Get(ctx, "a")
//	a.Attr().Set(ctx, "b", bridge.Number(1))
//
// updates the attribute table of x itself, not a detached copy.
//
// A Bridge serializes its top-level calls. Independent engines, each with
// their own Bridge, can be used in parallel.
package bridge
