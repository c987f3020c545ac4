package recovery

import (
	"context"
	"fmt"
)

// StrictStrategy fails on the first problem.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx context.Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every problem and asks the caller to carry on.
// Damaged cross-reference data is rebuilt and unreadable objects are
// skipped.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	if location.ObjectNum > 0 {
		s.Errors = append(s.Errors, fmt.Errorf("[%s] object %d %d: %w", location.Component, location.ObjectNum, location.ObjectGen, err))
		return ActionSkip
	}
	s.Errors = append(s.Errors, fmt.Errorf("[%s] offset %d: %w", location.Component, location.ByteOffset, err))
	return ActionWarn
}
