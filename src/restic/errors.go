package restic

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes derived from restic's stderr.
var (
	ErrNotRepository      = errors.New("repository not initialised")
	ErrAuthentication     = errors.New("authentication failed")
	ErrWrongPassword      = errors.New("wrong repository password")
	ErrNetwork            = errors.New("network error")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrLocked             = errors.New("repository is locked")
	ErrCommandFailed      = errors.New("command failed")
)

// CommandError describes a failed restic invocation.
type CommandError struct {
	Command  string // restic subcommand, e.g. "snapshots"
	ExitCode int
	Stderr   string
	Kind     error
	Err      error
}

func (e *CommandError) Error() string {
	msg := firstLine(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("restic %s: %v: %s", e.Command, e.Kind, msg)
}

func (e *CommandError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify maps restic stderr output to one of the failure classes.
func Classify(stderr string) error {
	s := strings.ToLower(stderr)
	switch {
	case isNotRepository(s):
		return ErrNotRepository
	case containsAny(s, "wrong password", "no key found"):
		return ErrWrongPassword
	case containsAny(s, "access denied", "invalid credentials", "authorization", "forbidden", "access key", "secret key", "signaturedoesnotmatch"):
		return ErrAuthentication
	case containsAny(s, "already locked"):
		return ErrLocked
	case containsAny(s, "network", "connection", "timeout", "unreachable", "dns", "no such host"):
		return ErrNetwork
	case strings.Contains(s, "repository") && strings.Contains(s, "not found"):
		return ErrRepositoryNotFound
	}
	return ErrCommandFailed
}

// IsFatal reports whether err should stop a bulk operation: no other
// repository will succeed with the same credentials or connectivity.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrWrongPassword)
}

func isNotRepository(s string) bool {
	return containsAny(s,
		"is not a repository",
		"does not look like a restic repository",
		"unable to open config file",
		"is there a repository at the following location",
	)
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
