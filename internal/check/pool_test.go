package check

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/dupcheck/internal/discover"
)

func TestParseConcurrentKeepsOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var files []discover.FileEntry
	for i := range 50 {
		rel := fmt.Sprintf("f%02d.txt", i)
		abs := writeFile(t, root, rel, rel)
		files = append(files, discover.FileEntry{Path: rel, Abs: abs})
	}

	var opened, closed atomic.Int32
	outcomes, err := parseConcurrent(context.Background(), files, func() (parser[string], error) {
		opened.Add(1)
		return parser[string]{
			parse: func(_ context.Context, _ discover.FileEntry, source []byte) (string, error) {
				return string(source), nil
			},
			close: func() { closed.Add(1) },
		}, nil
	})
	require.NoError(t, err)
	require.Len(t, outcomes, len(files))
	for i, o := range outcomes {
		assert.Equal(t, files[i].Path, o.value)
		assert.NoError(t, o.err)
	}
	assert.Equal(t, opened.Load(), closed.Load())
}

func TestParseConcurrentReadError(t *testing.T) {
	t.Parallel()

	files := []discover.FileEntry{{Path: "gone.py", Abs: filepath.Join(t.TempDir(), "gone.py")}}
	outcomes, err := parseConcurrent(context.Background(), files, func() (parser[int], error) {
		return parser[int]{parse: func(context.Context, discover.FileEntry, []byte) (int, error) { return 1, nil }}, nil
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].err)
}

func TestParseConcurrentSetupError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	files := []discover.FileEntry{{Path: "a"}, {Path: "b"}}
	_, err := parseConcurrent(context.Background(), files, func() (parser[int], error) {
		return parser[int]{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestParseConcurrentEmpty(t *testing.T) {
	t.Parallel()

	outcomes, err := parseConcurrent(context.Background(), nil, func() (parser[int], error) {
		t.Fatal("no parser needed")
		return parser[int]{}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
