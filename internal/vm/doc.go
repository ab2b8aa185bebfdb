// Package vm is the instruction virtual machine: per-routing-class
// engines that own instruction queues and worker execution contexts, and
// the driver loop that parses a descriptor, partitions it by routing
// class, and ticks both engines to quiescence.
//
// The driver is a single control flow. Scheduling passes and worker polls
// never block; readiness is re-checked every pass. The two engines share
// no mutable state with each other.
package vm
