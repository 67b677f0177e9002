// Package scicom bridges Go code to an embedded statistical-computing engine.
//
// Go code calls engine functions and reads engine values through ordinary
// method calls. Underneath, every call is translated into expression text that
// the engine evaluates, every temporary binding created to pass arguments is
// released when the call returns, and host arrays are handed to the engine as
// views whose layout matches the engine's column-major convention.
//
// # Architecture Overview
//
//	scicom/            Root package with the Engine and Value capabilities
//	├── bridge/        Call translation, argument marshaling, value wrappers, attributes
//	├── lifetime/      Temporary binding slots and the per-call drain stack
//	├── layout/        Host arrays, shape/index permutation, zero-copy engine vectors
//	├── errors/        Structured error types
//	├── wasmengine/    Engine backed by a WebAssembly guest interpreter (wazero)
//	├── internal/minir/ Small in-process engine used by tests and the command line tool
//	├── config/        YAML configuration for the command line tool
//	└── cmd/scicom/    Command line tool and interactive prompt
//
// # Quick Start
//
//	b := bridge.New(eng)
//
//	x, err := b.Invoke(ctx, "c", bridge.Range{From: 0, To: 10}, bridge.Number(50))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := b.Invoke(ctx, "mean", x, bridge.Mapping{bridge.KV("trim", bridge.Number(0.1))})
//	// evaluates mean(sc_3f2a..., trim = 0.1) and releases sc_3f2a... afterwards
//
// # Thread Safety
//
// An engine evaluates one expression at a time. Bridge serializes its own
// top-level calls; independent engines share no state and may run in parallel.
// A canceled context stops a call before it reaches the engine. Temporaries
// bound by a call are released even when its context is canceled.
package scicom
