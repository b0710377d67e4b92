//go:build unix

package elevation

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElevatedMatchesEffectiveUID(t *testing.T) {
	assert.Equal(t, os.Geteuid() == 0, Elevated())
}

func TestRequire(t *testing.T) {
	if os.Geteuid() == 0 {
		assert.NoError(t, Require())
		return
	}
	assert.ErrorIs(t, Require(), ErrNotElevated)
}

func TestRelaunchUnsupported(t *testing.T) {
	assert.ErrorIs(t, Relaunch([]string{"--mode", "enable"}), ErrUnsupported)
}
