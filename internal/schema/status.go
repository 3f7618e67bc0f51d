package schema

import (
	"fmt"

	"main/pkg/exception"
)

// OrderStatus tracks the lifecycle of an order. Values are ordered along
// the success path; Failed is terminal from any non-terminal state.
type OrderStatus uint8

const (
	_status_beg OrderStatus = iota
	StatusPending
	StatusRouting
	StatusBuilding
	StatusSubmitted
	StatusConfirmed
	StatusFailed
	_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _status_beg && s < _status_end
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRouting:
		return "routing"
	case StatusBuilding:
		return "building"
	case StatusSubmitted:
		return "submitted"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its lowercase wire name.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("marshal order status %d: %w", s, exception.ErrOrderInvalidRequest)
	}
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase wire name.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	name := string(data)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	for v := _status_beg + 1; v < _status_end; v++ {
		if v.String() == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unmarshal order status %q: %w", name, exception.ErrOrderInvalidRequest)
}
