package interactive

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Survey is a terminal Selector. Ctrl-C maps to ErrCancelled.
type Survey struct {
	stdio    terminal.Stdio
	hasIO    bool
	PageSize int
}

// NewSurvey uses the process terminal.
func NewSurvey() *Survey {
	return &Survey{PageSize: 15}
}

// NewSurveyWithStdio uses the given terminal streams.
func NewSurveyWithStdio(stdio terminal.Stdio) *Survey {
	return &Survey{stdio: stdio, hasIO: true, PageSize: 15}
}

func (s *Survey) Select(message string, options []string, defaultIndex int) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to select")
	}
	if defaultIndex < 0 || defaultIndex >= len(options) {
		defaultIndex = 0
	}
	var idx int
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		Default:  options[defaultIndex],
		PageSize: s.PageSize,
	}
	if err := survey.AskOne(prompt, &idx, s.opts()...); err != nil {
		return 0, mapErr(err)
	}
	return idx, nil
}

func (s *Survey) MultiSelect(message string, options []string) ([]int, error) {
	if len(options) == 0 {
		return nil, errors.New("nothing to select")
	}
	var idx []int
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: s.PageSize,
	}
	if err := survey.AskOne(prompt, &idx, s.opts()...); err != nil {
		return nil, mapErr(err)
	}
	sort.Ints(idx)
	return idx, nil
}

func (s *Survey) Confirm(message string, def bool) (bool, error) {
	ok := def
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &ok, s.opts()...); err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (s *Survey) opts() []survey.AskOpt {
	if !s.hasIO {
		return nil
	}
	return []survey.AskOpt{survey.WithStdio(s.stdio.In, s.stdio.Out, s.stdio.Err)}
}

func mapErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return fmt.Errorf("prompt failed: %w", err)
}
