package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restic-backup-service/src/repository"
)

func TestSortAddresses(t *testing.T) {
	addrs := []repository.Address{
		{Host: "h", Category: repository.System, Segment: "etc"},
		{Host: "h", Category: repository.DockerVolume, Segment: "b"},
		{Host: "h", Category: repository.UserHome, Segment: "z"},
		{Host: "h", Category: repository.DockerVolume, Segment: "a"},
	}
	repository.SortAddresses(addrs)
	got := make([]string, 0, len(addrs))
	for _, a := range addrs {
		got = append(got, a.Subpath())
	}
	assert.Equal(t, []string{"user_home/z", "docker_volume/a", "docker_volume/b", "system/etc"}, got)
}
