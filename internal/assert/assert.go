// Package assert reports programmer-bug invariant violations.
//
// Every check here guards an invariant that the mergepq algorithm relies on
// for correctness (owner monotonicity, sentinel terminality, chain
// acyclicity). A failing check is fatal: it is not a user-facing error, it
// is evidence that the lock-free protocol has been broken.
package assert

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "mergepq")

// Invariant panics with a structured log record if cond is false.
//
// name identifies the invariant (e.g. "owner-monotonic", "chain-acyclic")
// so a panic trace can be correlated back to the component design doc
// without needing the message text to carry everything.
func Invariant(cond bool, name string, fields logrus.Fields) {
	if cond {
		return
	}
	entry := log.WithField("invariant", name)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error("invariant violated")
	panic("mergepq: invariant violated: " + name)
}

// Unreachable panics unconditionally; use it for branches the protocol
// argues can never be taken (see the duplicate-reinsert branch in
// evaluateMerges).
func Unreachable(name string, fields logrus.Fields) {
	Invariant(false, name, fields)
}
