package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Resolve applies the safety flags to a confirmation: a dry run always
// declines, --yes and --force accept, otherwise ask decides.
func Resolve(opts Options, ask func() (bool, error)) (bool, error) {
	switch {
	case opts.DryRun:
		return false, nil
	case opts.Yes || opts.Force:
		return true, nil
	case ask == nil:
		return false, nil
	}
	return ask()
}

// Confirm asks question on out and reads a y/N answer from in. A nil in
// declines.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	return Resolve(opts, func() (bool, error) {
		if out != nil {
			fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
		}
		if in == nil {
			return false, nil
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		ans := strings.TrimSpace(strings.ToLower(line))
		return ans == "y" || ans == "yes", nil
	})
}
