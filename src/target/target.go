package target

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"restic-backup-service/src/repository"
)

// Target is a parsed repository base. Every repository lives below it at
// <base>/<host>/<category>/<segment>.
// Examples:
//
//	s3:https://s3.eu-central-003.backblazeb2.com/my-bucket/restic
//	local:/srv/restic
//	/srv/restic
type Target struct {
	// Raw is the original input string.
	Raw string
	// Scheme is "s3" or "local".
	Scheme string
	// Value is the scheme-specific remainder.
	Value string

	// S3 fields.
	Endpoint string // scheme + host, e.g. https://s3.example.com
	Bucket   string
	BasePath string // may be empty

	// DirPath is set when Scheme == "local" and holds a cleaned absolute path.
	DirPath string
}

// SupportedSchemes lists the schemes the parser accepts.
var SupportedSchemes = map[string]struct{}{
	"s3":    {},
	"local": {},
}

// Parse parses a restic repository base such as "s3:https://host/bucket/base".
func Parse(raw string) (Target, error) {
	t := Target{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return t, fmt.Errorf("repository base must not be empty; expected 's3:https://host/bucket[/path]' or an absolute directory")
	}
	if strings.HasPrefix(s, "/") {
		s = "local:" + s
	}
	i := strings.Index(s, ":")
	if i <= 0 || i == len(s)-1 {
		return t, fmt.Errorf("invalid repository base %q; expected '<scheme>:<value>'", raw)
	}
	scheme := strings.ToLower(strings.TrimSpace(s[:i]))
	val := strings.TrimSpace(s[i+1:])
	if !IsSupported(scheme) {
		return t, fmt.Errorf("unsupported repository scheme %q", scheme)
	}
	t.Scheme = scheme
	t.Value = val

	switch scheme {
	case "s3":
		if err := parseS3(&t, val); err != nil {
			return t, err
		}
	case "local":
		clean := filepath.Clean(val)
		if !filepath.IsAbs(clean) {
			return t, fmt.Errorf("local repository base must be an absolute path: %q", val)
		}
		t.DirPath = clean
		t.Value = clean
	}
	return t, nil
}

func parseS3(t *Target, val string) error {
	proto := "https"
	rest := val
	if p, r, ok := strings.Cut(val, "://"); ok {
		proto = strings.ToLower(p)
		rest = r
	}
	if proto != "https" && proto != "http" {
		return fmt.Errorf("unsupported s3 endpoint protocol %q", proto)
	}
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("s3 repository base %q must include endpoint and bucket", val)
	}
	t.Endpoint = proto + "://" + parts[0]
	t.Bucket = parts[1]
	if len(parts) == 3 {
		t.BasePath = strings.Trim(parts[2], "/")
	}
	t.Value = strings.TrimRight(t.Endpoint+"/"+path.Join(t.Bucket, t.BasePath), "/")
	return nil
}

// IsSupported returns true if the scheme is recognized.
func IsSupported(scheme string) bool {
	_, ok := SupportedSchemes[strings.ToLower(scheme)]
	return ok
}

// RepositoryURL returns the restic repository URL for addr.
func (t Target) RepositoryURL(addr repository.Address) string {
	switch t.Scheme {
	case "local":
		return filepath.Join(t.DirPath, addr.Host, string(addr.Category), addr.Segment)
	default:
		return t.String() + "/" + addr.Key()
	}
}

// String returns a canonical string form of the target.
func (t Target) String() string {
	if t.Scheme != "" {
		return fmt.Sprintf("%s:%s", t.Scheme, t.Value)
	}
	return t.Raw
}
