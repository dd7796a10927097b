package target_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restic-backup-service/src/repository"
	"restic-backup-service/src/target"
)

func TestParse_S3(t *testing.T) {
	tgt, err := target.Parse("s3:https://s3.example.com/backups/restic/prod/")
	require.NoError(t, err)
	assert.Equal(t, "s3", tgt.Scheme)
	assert.Equal(t, "https://s3.example.com", tgt.Endpoint)
	assert.Equal(t, "backups", tgt.Bucket)
	assert.Equal(t, "restic/prod", tgt.BasePath)
	assert.Equal(t, "s3:https://s3.example.com/backups/restic/prod", tgt.String())

	addr := repository.Address{Host: "web01", Category: repository.UserHome, Segment: "alice/.config"}
	assert.Equal(t, "s3:https://s3.example.com/backups/restic/prod/web01/user_home/alice/.config", tgt.RepositoryURL(addr))
}

func TestParse_S3NoBasePath(t *testing.T) {
	tgt, err := target.Parse("s3:s3.amazonaws.com/bucket")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.amazonaws.com", tgt.Endpoint)
	assert.Equal(t, "bucket", tgt.Bucket)
	assert.Empty(t, tgt.BasePath)
	addr := repository.Address{Host: "h", Category: repository.System, Segment: "etc"}
	assert.Equal(t, "s3:https://s3.amazonaws.com/bucket/h/system/etc", tgt.RepositoryURL(addr))
}

func TestParse_Local(t *testing.T) {
	for _, raw := range []string{"/srv/restic/", "local:/srv/restic"} {
		tgt, err := target.Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "local", tgt.Scheme)
		assert.Equal(t, "/srv/restic", tgt.DirPath)
		addr := repository.Address{Host: "h", Category: repository.DockerVolume, Segment: "pg"}
		assert.Equal(t, "/srv/restic/h/docker_volume/pg", tgt.RepositoryURL(addr))
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []string{"", "   ", "s3:", "ftp:/x", "local:relative/path", "s3:https://host-only", "s3:ftp://host/bucket"}
	for _, raw := range cases {
		_, err := target.Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, target.IsSupported("S3"))
	assert.True(t, target.IsSupported("local"))
	assert.False(t, target.IsSupported("dir"))
}
