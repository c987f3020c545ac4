package recovery

import "context"

// Strategy decides what the parser does with a malformed construct.
type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

// Location describes where in the input a problem was found.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	case ActionFix:
		return "fix"
	case ActionWarn:
		return "warn"
	}
	return "unknown"
}

// Continue reports whether parsing may go on after the action.
func (a Action) Continue() bool { return a != ActionFail }
