package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	var stream bytes.Buffer
	res, err := Run(context.Background(), Cmd{
		Dir:    t.TempDir(),
		Args:   []string{"sh", "-c", "echo hello; echo oops >&2"},
		Stream: &stream,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "hello")
	assert.Contains(t, res.Output, "oops")
	assert.Equal(t, res.Output, stream.String())
}

func TestRun_NonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Args: []string{"sh", "-c", "echo broken; exit 7"}})
	require.Error(t, err)
	assert.Equal(t, 7, res.ExitCode)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 7, exitErr.ExitCode())
	assert.Equal(t, "broken", exitErr.Tail)
}

func TestRun_NotFound(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Args: []string{"cadence-definitely-missing-binary"}})
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, res.ExitCode)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Cmd{Args: []string{"sh", "-c", "sleep 5"}})
	require.Error(t, err)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "a\nb", Tail("a\nb\n", 20))

	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	got := Tail(strings.Join(lines, "\n"), 20)
	assert.True(t, strings.HasPrefix(got, "...(truncated)...\nline 10\n"))
	assert.True(t, strings.HasSuffix(got, "line 29"))
}
