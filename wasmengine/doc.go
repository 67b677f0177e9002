// Package wasmengine runs a statistical engine compiled to WebAssembly
// behind the scicom.Engine interface.
//
// The guest is a reactor module exporting:
//
//	memory
//	allocate(len i32) -> i32
//	scicom_eval(ptr, len i32) -> i64
//	scicom_bind(ptr, len i32) -> i64
//	scicom_unbind(ptr, len i32) -> i64
//
// and optionally _initialize and deallocate(ptr, len i32). Requests and
// responses are JSON documents written into guest memory. Each call returns
// its response location packed as (ptr<<32)|len. Schema returns the JSON
// schema of the protocol.
//
// Values cross the boundary by copy. A host array bound into the guest is
// read out in engine order first, so the guest never sees host storage.
package wasmengine
