package interactive

import (
	"fmt"
	"sync"
)

// Answer is one scripted response. Exactly one field is meaningful for a
// given prompt kind; Cancel aborts any prompt.
type Answer struct {
	Index   int
	Indexes []int
	Yes     bool
	Cancel  bool
}

// Scripted replays answers in order. It backs non-interactive runs and tests.
// Prompts are recorded in Asked.
type Scripted struct {
	mu      sync.Mutex
	answers []Answer
	Asked   []string
}

func NewScripted(answers ...Answer) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(message string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, message)
	if len(s.answers) == 0 {
		return Answer{}, fmt.Errorf("no scripted answer for %q", message)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a.Cancel {
		return Answer{}, ErrCancelled
	}
	return a, nil
}

func (s *Scripted) Select(message string, options []string, _ int) (int, error) {
	a, err := s.next(message)
	if err != nil {
		return 0, err
	}
	if a.Index < 0 || a.Index >= len(options) {
		return 0, fmt.Errorf("scripted answer %d out of range for %q (%d options)", a.Index, message, len(options))
	}
	return a.Index, nil
}

func (s *Scripted) MultiSelect(message string, options []string) ([]int, error) {
	a, err := s.next(message)
	if err != nil {
		return nil, err
	}
	for _, i := range a.Indexes {
		if i < 0 || i >= len(options) {
			return nil, fmt.Errorf("scripted answer %d out of range for %q", i, message)
		}
	}
	return a.Indexes, nil
}

func (s *Scripted) Confirm(message string, _ bool) (bool, error) {
	a, err := s.next(message)
	if err != nil {
		return false, err
	}
	return a.Yes, nil
}

// Remaining reports how many answers were not consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
