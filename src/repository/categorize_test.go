package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restic-backup-service/src/repository"
)

func TestCategorize(t *testing.T) {
	c := repository.NewCategorizer("", "")
	cases := []struct {
		path    string
		cat     repository.Category
		segment string
	}{
		{"/home/alice/.local/share/Paradox Interactive", repository.UserHome, "alice/.local_share_Paradox Interactive"},
		{"/home/tim", repository.UserHome, "tim"},
		{"/home/tim/", repository.UserHome, "tim"},
		{"/home/tim/my/deep/path", repository.UserHome, "tim/my_deep_path"},
		{"/home/user/my_project/src", repository.UserHome, "user/my_project_src"},
		{"/home/user/Projects/rust/my-project", repository.UserHome, "user/Projects_rust_my-project"},
		{"/mnt/docker-data/volumes/my app data", repository.DockerVolume, "my app data"},
		{"/mnt/docker-data/volumes/complex/nested/volume", repository.DockerVolume, "complex_nested_volume"},
		{"/etc/nginx", repository.System, "etc_nginx"},
		{"/etc/nginx/", repository.System, "etc_nginx"},
		{"/usr/share/applications/Google Chrome", repository.System, "usr_share_applications_Google Chrome"},
		{"/homework/notes", repository.System, "homework_notes"},
		{"/mnt/docker-data/volumesx", repository.System, "mnt_docker-data_volumesx"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			cat, seg, err := c.Categorize(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.cat, cat)
			assert.Equal(t, tc.segment, seg)
		})
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		cat, seg, err := repository.Categorize("/home/bob/Documents/tax 2024", "/home", "/var/lib/docker/volumes")
		require.NoError(t, err)
		assert.Equal(t, repository.UserHome, cat)
		assert.Equal(t, "bob/Documents_tax 2024", seg)
	}
}

func TestCategorize_CustomRoots(t *testing.T) {
	cat, seg, err := repository.Categorize("/var/lib/docker/volumes/db/_data", "/users", "/var/lib/docker/volumes/")
	require.NoError(t, err)
	assert.Equal(t, repository.DockerVolume, cat)
	assert.Equal(t, "db__data", seg)

	cat, seg, err = repository.Categorize("/users/carol/x", "/users", "/var/lib/docker/volumes")
	require.NoError(t, err)
	assert.Equal(t, repository.UserHome, cat)
	assert.Equal(t, "carol/x", seg)
}

func TestCategorize_Invalid(t *testing.T) {
	for _, p := range []string{
		"", "relative/path", "/", "/home", "/home/", "/mnt/docker-data/volumes",
		"/home//alice/docs", "/mnt/docker-data/volumes//pg", "//etc",
	} {
		_, _, err := repository.Categorize(p, repository.DefaultHomeRoot, repository.DefaultDockerVolumeRoot)
		var invalid *repository.InvalidPathError
		require.Error(t, err, p)
		assert.True(t, errors.As(err, &invalid), "path %q: want InvalidPathError, got %v", p, err)
	}
}

func TestReservedVolumeEntries(t *testing.T) {
	assert.True(t, repository.IsReservedVolumeEntry("backingFsBlockDev"))
	assert.True(t, repository.IsReservedVolumeEntry("metadata.db"))
	assert.False(t, repository.IsReservedVolumeEntry("postgres"))
}

func TestCategorizer_Address(t *testing.T) {
	addr, err := repository.NewCategorizer("", "").Address("web01", "/etc/nginx")
	require.NoError(t, err)
	assert.Equal(t, "web01/system/etc_nginx", addr.Key())
	assert.Equal(t, "system/etc_nginx", addr.Subpath())
}
