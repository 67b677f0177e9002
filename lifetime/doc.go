// Package lifetime tracks the engine-side names the bridge creates.
//
// A value that has to appear inside expression text is first published into
// the engine's global namespace under a generated name. The name is kept in
// the value's Slot, so publishing the same value twice yields the same name,
// and is pushed on the Manager's stack. When the top-level call that caused
// the publication returns, its Frame drains the stack back to where the call
// started: every name is unbound and every slot is cleared, on success and on
// error alike.
//
//	f := m.Begin()
//	defer f.End(ctx)
//
//	name, err := m.Acquire(ctx, value) // sc_9f86d081884c7d65
//
// Names produced by the Manager use a fixed prefix and random hex suffix,
// which keeps them apart from names chosen by users and from each other.
package lifetime
