// Package errors defines the startup error taxonomy shared by the
// configuration resolver and the bootstrap sequencer.
//
// Every failure carries a machine-readable Code and belongs to one Kind:
// configuration errors are raised before any side effect, bootstrap errors
// name the step that failed. Both are terminal for the process.
package errors
