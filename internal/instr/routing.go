package instr

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// RoutingClass classifies where an instruction executes.
type RoutingClass uint8

const (
	// RoutingLocal targets the machine the driver runs on.
	RoutingLocal RoutingClass = iota

	// RoutingRemote targets another machine. Remote instructions are
	// scheduled by their own engine; actual cross-machine transport is a
	// known unsupported path, gated at the driver.
	RoutingRemote
)

func (c RoutingClass) String() string {
	switch c {
	case RoutingLocal:
		return "local"
	case RoutingRemote:
		return "remote"
	default:
		return fmt.Sprintf("RoutingClass(%d)", uint8(c))
	}
}

// ParseRouting maps a wire routing tag to its class.
// Every instruction must carry one of the two recognized tags.
func ParseRouting(s string) (RoutingClass, error) {
	switch s {
	case "local":
		return RoutingLocal, nil
	case "remote":
		return RoutingRemote, nil
	default:
		return 0, fmt.Errorf("unrecognized routing tag %q", s)
	}
}

// TypeID identifies an operator type within a routing class.
type TypeID struct {
	Name  string
	Class RoutingClass
}

// NewTypeID builds a TypeID with an NFC-normalized operator name, so wire
// descriptors and Go literals agree on identity regardless of the Unicode
// form they arrived in.
func NewTypeID(name string, class RoutingClass) TypeID {
	return TypeID{Name: norm.NFC.String(name), Class: class}
}

func (t TypeID) String() string {
	return fmt.Sprintf("%s/%s", t.Class, t.Name)
}
