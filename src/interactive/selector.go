package interactive

import "errors"

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("cancelled by user")

// Selector presents choices to the user.
type Selector interface {
	// Select returns the index of the chosen option.
	Select(message string, options []string, defaultIndex int) (int, error)
	// MultiSelect returns the indexes of the chosen options in ascending order.
	MultiSelect(message string, options []string) ([]int, error)
	// Confirm asks a yes/no question.
	Confirm(message string, def bool) (bool, error)
}
