package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const sampleEnv = `# restic-backup-service configuration

# Repository password shared by every repository.
RESTIC_PASSWORD=change-me

# Base URL; repositories live below <base>/<host>/<category>/<segment>.
# A local directory works too: RESTIC_REPO_BASE=/srv/restic
RESTIC_REPO_BASE=s3:https://s3.example.com/backups/restic

AWS_ACCESS_KEY_ID=
AWS_SECRET_ACCESS_KEY=
AWS_DEFAULT_REGION=auto
# AWS_S3_ENDPOINT=https://s3.example.com

# Comma separated paths backed up by "run" without arguments.
BACKUP_PATHS=/etc,/home/alice
# BACKUP_HOSTNAME=web01

# HOME_ROOT=/home
# DOCKER_VOLUMES_ROOT=/mnt/docker-data/volumes
# CONCURRENCY=4
# RESTORE_STAGING_DIR=/tmp/restic/interactive

# LOG_LEVEL=info
# LOG_FILE=/var/log/restic-backup-service.log
`

// WriteSample writes a commented sample env file to path. An existing file
// is never overwritten.
func WriteSample(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("config: %s already exists, not overwriting", path)
		}
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	if _, err := f.WriteString(sampleEnv); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}
