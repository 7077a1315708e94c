package model

import "fmt"

// DataMode определяет источник котировок: живые фиды или симуляция
type DataMode int

const (
	LiveMode DataMode = iota
	TestMode
)

func (m DataMode) String() string {
	switch m {
	case LiveMode:
		return "live"
	case TestMode:
		return "test"
	default:
		return "unknown"
	}
}

func ParseDataMode(s string) (DataMode, error) {
	switch s {
	case "live", "":
		return LiveMode, nil
	case "test":
		return TestMode, nil
	default:
		return LiveMode, fmt.Errorf("unknown data mode %q", s)
	}
}

func (m DataMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
