// Package layout provides a declared-field reflection substrate for the
// instruction object types used by the VM.
//
// Every participating type registers an ordered field declaration that is
// cross-checked against the layout the Go compiler actually produced. A
// mismatch (missing field, wrong order, padding the declaration did not
// account for) panics during registration. Registrations run from package
// init functions, so a layout violation aborts the process at startup,
// before any instruction is scheduled.
//
// The registered Spec supports ordered field visitation (forward and
// reverse), discriminator-keyed dispatch for variant fields, and accessors
// that are transparent to whether a field is stored inline or behind one
// level of indirection.
package layout
