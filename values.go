package gdtf

import (
	"fmt"
	"strconv"
	"strings"
)

// DataVersion is the GDTF DataVersion attribute.
type DataVersion int

const (
	V1_0 DataVersion = iota
	V1_1
	V1_2
)

func (v DataVersion) String() string {
	switch v {
	case V1_0:
		return "1.0"
	case V1_1:
		return "1.1"
	default:
		return "1.2"
	}
}

// ParseDataVersion parses "1.0", "1.1" or "1.2".
func ParseDataVersion(s string) (DataVersion, error) {
	switch s {
	case "1.0":
		return V1_0, nil
	case "1.1":
		return V1_1, nil
	case "1.2":
		return V1_2, nil
	}
	return V1_2, fmt.Errorf("invalid DataVersion %q", s)
}

// Break is a DMX break, an unsigned integer greater than zero.
type Break uint16

// DefaultBreak is substituted when a break attribute is absent or invalid.
const DefaultBreak Break = 1

// ParseBreak parses a break attribute. Zero and non-integer input are
// rejected.
func ParseBreak(s string) (Break, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return DefaultBreak, fmt.Errorf("could not parse as valid integer: %w", err)
	}
	if v == 0 {
		return DefaultBreak, fmt.Errorf("DMX breaks of value 0 are not allowed")
	}
	return Break(v), nil
}

// DMXAddress is an absolute, 1-based DMX address. The wire format is either
// an absolute integer or "Universe.Address" with 512 addresses per universe:
// "1.1" is address 1, "1.512" is 512, "2.1" is 513.
//
// The internal representation is 0-based; it never leaks. Zero and negative
// wire values are rejected, matching what the GDTF Builder accepts.
type DMXAddress struct {
	v uint32
}

// DefaultDMXAddress is address 1 in universe 1.
var DefaultDMXAddress = DMXAddress{0}

// NewDMXAddress builds a DMXAddress from a 1-based absolute value.
func NewDMXAddress(abs uint32) (DMXAddress, error) {
	if abs < 1 {
		return DMXAddress{}, fmt.Errorf("DMX address %d too small", abs)
	}
	return DMXAddress{abs - 1}, nil
}

// Absolute returns the 1-based absolute address.
func (a DMXAddress) Absolute() uint32 { return a.v + 1 }

// Universe returns the 1-based universe number.
func (a DMXAddress) Universe() uint32 { return a.v/512 + 1 }

// Address returns the 1-based address within the universe.
func (a DMXAddress) Address() uint32 { return a.v%512 + 1 }

func (a DMXAddress) String() string { return strconv.FormatUint(uint64(a.Absolute()), 10) }

// ParseDMXAddress parses either the absolute or the "Universe.Address" form.
func ParseDMXAddress(s string) (DMXAddress, error) {
	if uni, addr, ok := strings.Cut(s, "."); ok {
		u, err := strconv.ParseUint(uni, 10, 32)
		if err != nil {
			return DMXAddress{}, fmt.Errorf("invalid universe in DMX address %q: %w", s, err)
		}
		a, err := strconv.ParseUint(addr, 10, 32)
		if err != nil {
			return DMXAddress{}, fmt.Errorf("invalid address in DMX address %q: %w", s, err)
		}
		if u < 1 || a < 1 || a > 512 {
			return DMXAddress{}, fmt.Errorf("DMX address %q out of range", s)
		}
		abs := (u-1)*512 + a
		if abs > 1<<32-1 {
			return DMXAddress{}, fmt.Errorf("DMX address %q out of range", s)
		}
		return DMXAddress{uint32(abs) - 1}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return DMXAddress{}, fmt.Errorf("invalid DMX address %q: %w", s, err)
	}
	if v < 1 || v > 1<<32-1 {
		return DMXAddress{}, fmt.Errorf("DMX address %q out of range", s)
	}
	return DMXAddress{uint32(v) - 1}, nil
}

// ParseYesNo parses the Yes/No attribute vocabulary.
func ParseYesNo(s string) (bool, error) {
	switch s {
	case "Yes":
		return true, nil
	case "No":
		return false, nil
	}
	return true, fmt.Errorf("expected one of ['Yes', 'No'], got %q", s)
}

// FormatYesNo renders the Yes/No attribute vocabulary.
func FormatYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
