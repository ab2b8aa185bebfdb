// Package instr defines the instruction objects the VM schedules: typed
// units of work with a routing class, discriminated operand payloads, an
// intrusive list link, and reference-counted lifetime.
//
// Instruction and Operand register their memory layout with the layout
// package at init; a declaration that disagrees with the compiled struct
// layout aborts the process at startup.
package instr
