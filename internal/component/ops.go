package component

import "fmt"

// ManageOp is a structural request against a component on an entity.
type ManageOp uint8

const (
	Add ManageOp = iota + 1
	Remove
)

func (op ManageOp) String() string {
	switch op {
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("ManageOp(%d)", uint8(op))
	}
}

// ParseManageOp is the inverse of ManageOp.String.
func ParseManageOp(s string) (ManageOp, error) {
	switch s {
	case "add":
		return Add, nil
	case "remove":
		return Remove, nil
	default:
		return 0, fmt.Errorf("unknown manage operation %q", s)
	}
}

// Phase is a step of the loader protocol. A load runs the phases in order
// and only the last one touches storage.
type Phase uint8

const (
	PhaseParsing Phase = iota + 1
	PhaseValidating
	PhaseConstructing
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseParsing:
		return "parsing"
	case PhaseValidating:
		return "validating"
	case PhaseConstructing:
		return "constructing"
	case PhaseCommitting:
		return "committing"
	default:
		return ""
	}
}
