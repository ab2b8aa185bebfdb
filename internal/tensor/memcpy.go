package tensor

import "fmt"

// DeviceKind selects the copy primitive used for a tensor's buffer.
type DeviceKind uint8

const (
	// Host is plain addressable memory.
	Host DeviceKind = iota

	// Accel is an accelerator-resident buffer. With no accelerator runtime
	// linked in, buffers are host-backed and copies degrade to host copies;
	// the indirection keeps kernel code device-agnostic.
	Accel
)

func (d DeviceKind) String() string {
	switch d {
	case Host:
		return "host"
	case Accel:
		return "accel"
	default:
		return fmt.Sprintf("DeviceKind(%d)", uint8(d))
	}
}

// ParseDevice maps a wire device name.
func ParseDevice(s string) (DeviceKind, error) {
	switch s {
	case "host", "":
		return Host, nil
	case "accel":
		return Accel, nil
	default:
		return 0, fmt.Errorf("unknown device kind %q", s)
	}
}

// copyFn copies count bytes between buffers owned by one device kind.
type copyFn func(dst, src []byte, count int)

var copiers = map[DeviceKind]copyFn{
	Host:  hostCopy,
	Accel: hostCopy, // host-backed until a real accelerator runtime exists
}

func hostCopy(dst, src []byte, count int) {
	copy(dst[:count], src[:count])
}

// Memcpy copies count bytes through the copier registered for the device
// kind. An unregistered device kind is a wiring bug and panics.
func Memcpy(dev DeviceKind, dst, src []byte, count int) {
	fn, ok := copiers[dev]
	if !ok {
		panic(fmt.Sprintf("tensor: no copier registered for device %s", dev))
	}
	if count > len(dst) || count > len(src) {
		panic(fmt.Sprintf("tensor: memcpy of %d bytes over dst=%d src=%d", count, len(dst), len(src)))
	}
	fn(dst, src, count)
}
