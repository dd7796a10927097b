package repository

// Category classifies a backed-up path and is the second level of the remote
// layout <host>/<category>/<segment>.
type Category string

const (
	UserHome     Category = "user_home"
	DockerVolume Category = "docker_volume"
	System       Category = "system"
)

// Categories lists every category in presentation order.
var Categories = []Category{UserHome, DockerVolume, System}

// ParseCategory maps a remote layout token back to a Category.
func ParseCategory(token string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == token {
			return c, true
		}
	}
	return "", false
}

// Label is the human readable name used in menus and reports.
func (c Category) Label() string {
	switch c {
	case UserHome:
		return "User Home"
	case DockerVolume:
		return "Docker Volumes"
	case System:
		return "System"
	}
	return string(c)
}

// BackupTag is the restic tag attached to snapshots of this category.
func (c Category) BackupTag() string {
	switch c {
	case UserHome:
		return "user-path"
	case DockerVolume:
		return "docker-volume"
	case System:
		return "system-path"
	}
	return string(c)
}

func (c Category) rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return len(Categories)
}
