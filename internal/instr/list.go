package instr

import "fmt"

// listLink is the embedded link slot. It lives inside the instruction, so
// list membership costs no allocation and detaching is O(1).
type listLink struct {
	prev, next *Instruction
	owner      *List
}

// List is an intrusive, ownership-aware sequence of instructions.
//
// Pushing transfers the caller's reference to the list; popping or
// removing transfers it back. An instruction belongs to at most one list
// at any instant, enforced via the embedded link's owner slot.
//
// List is not safe for concurrent use; the scheduling model drives each
// list from a single control flow.
type List struct {
	head, tail *Instruction
	n          int
}

// Len returns the number of listed instructions.
func (l *List) Len() int { return l.n }

// Empty reports whether the list holds no instructions.
func (l *List) Empty() bool { return l.n == 0 }

// Front returns the first instruction without transferring ownership, or
// nil when empty.
func (l *List) Front() *Instruction {
	return l.head
}

// PushBack appends in O(1). The caller's reference moves into the list.
// Pushing an instruction that already belongs to a list panics.
func (l *List) PushBack(in *Instruction) {
	if in.link.owner != nil {
		panic(fmt.Sprintf("instr: %s already belongs to a list", in))
	}
	in.link.owner = l
	in.link.prev = l.tail
	in.link.next = nil
	if l.tail != nil {
		l.tail.link.next = in
	} else {
		l.head = in
	}
	l.tail = in
	l.n++
}

// Remove detaches in O(1) and hands the list's reference back to the
// caller. Removing an instruction this list does not own panics.
func (l *List) Remove(in *Instruction) {
	if in.link.owner != l {
		panic(fmt.Sprintf("instr: %s does not belong to this list", in))
	}
	if in.link.prev != nil {
		in.link.prev.link.next = in.link.next
	} else {
		l.head = in.link.next
	}
	if in.link.next != nil {
		in.link.next.link.prev = in.link.prev
	} else {
		l.tail = in.link.prev
	}
	in.link = listLink{}
	l.n--
}

// PopFront detaches and returns the first instruction, transferring its
// reference to the caller. Returns nil when empty.
func (l *List) PopFront() *Instruction {
	in := l.head
	if in == nil {
		return nil
	}
	l.Remove(in)
	return in
}

// SpliceInto moves every instruction to the back of dst, preserving
// order. References move with the instructions; the receiver is left
// empty.
func (l *List) SpliceInto(dst *List) {
	for in := l.PopFront(); in != nil; in = l.PopFront() {
		dst.PushBack(in)
	}
}

// ForEach visits the listed instructions front to back without
// transferring ownership. The visitor may remove the instruction it is
// currently visiting; the iteration holds the next pointer first.
func (l *List) ForEach(fn func(*Instruction) bool) {
	for in := l.head; in != nil; {
		next := in.link.next
		if !fn(in) {
			return
		}
		in = next
	}
}

// Clear detaches and releases every instruction.
func (l *List) Clear() {
	for in := l.PopFront(); in != nil; in = l.PopFront() {
		in.Release()
	}
}
