package membrane

import "fmt"

// Side names one of the two object graphs a membrane separates.
type Side uint8

const (
	// Wet is the side the membrane's root target lives on.
	Wet Side = iota
	// Dry is the side the root wrapper is handed to.
	Dry
)

// Flip returns the opposite side.
func (s Side) Flip() Side {
	if s == Wet {
		return Dry
	}
	return Wet
}

func (s Side) String() string {
	switch s {
	case Wet:
		return "wet"
	case Dry:
		return "dry"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ParseSide converts "wet" or "dry" into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "wet":
		return Wet, nil
	case "dry":
		return Dry, nil
	}
	return 0, fmt.Errorf("unknown membrane side %q", s)
}
