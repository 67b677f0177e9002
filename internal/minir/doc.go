// Package minir is a small in-process engine that speaks a subset of the R
// language. It implements scicom.Engine so the bridge can be exercised
// without an external interpreter.
//
// Supported: double, integer (10L), character, logical, NULL and NA
// literals; arithmetic with recycling, comparison, logical operators and
// the : sequence operator; calls with named arguments; [ [[ and $ access;
// assignment with <- and =, including nested replacement forms such as
// attr(attr(x, "a"), "b") <- 1 and dim(x) <- c(2, 3); and a set of
// builtins (see builtins.go).
//
// Values are immutable. Replacement functions return modified copies, so a
// vector bound from host storage is never written through: it is copied the
// first time an element is replaced.
package minir
