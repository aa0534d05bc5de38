package pose

import (
	"fmt"
	"strings"
)

// Mode selects how many subjects the estimator looks for.
type Mode int

const (
	SinglePose Mode = iota
	MultiPose
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case SinglePose:
		return "single"
	case MultiPose:
		return "multi"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == MultiPose {
		return SinglePose
	}
	return MultiPose
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts "single"/"multi" and a few aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "singlepose", "single-pose", "one":
		return SinglePose, nil
	case "multi", "multipose", "multi-pose", "many":
		return MultiPose, nil
	}
	return SinglePose, fmt.Errorf("pose: unknown mode %q", s)
}
