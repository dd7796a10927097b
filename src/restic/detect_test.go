package restic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restic-backup-service/src/restic"
)

func TestExtractVersion(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "standard output", input: "restic 0.17.3 compiled with go1.23.1 on linux/amd64\n", want: "0.17.3"},
		{name: "prerelease", input: "restic 0.18.0-dev (compiled manually)\n", want: "0.18.0-dev"},
		{name: "no match", input: "restic version output is unexpected\n", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := restic.ExtractVersion(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsCompatible(t *testing.T) {
	assert.True(t, restic.IsCompatible("0.17.0"))
	assert.True(t, restic.IsCompatible("0.18.1"))
	assert.True(t, restic.IsCompatible(" 1.0.0 "))
	assert.False(t, restic.IsCompatible("0.16.4"))
	assert.False(t, restic.IsCompatible("0.17.0-dev"))
	assert.False(t, restic.IsCompatible(""))
	assert.False(t, restic.IsCompatible("garbage"))
}
