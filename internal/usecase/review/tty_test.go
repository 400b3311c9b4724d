package review

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTTY_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notatty")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTTY(f.Fd()))
}

func TestIsTTY_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.False(t, IsTTY(r.Fd()))
	assert.False(t, IsTTY(w.Fd()))
}

func TestIsOutputTerminal_MatchesStdout(t *testing.T) {
	assert.Equal(t, IsTTY(os.Stdout.Fd()), IsOutputTerminal())
}
