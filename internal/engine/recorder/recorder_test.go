package recorder_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/darkkaiser/pricesearch/internal/engine/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyRecorder struct {
	calls []recorder.Failure
}

func (s *spyRecorder) RecordFailure(_ context.Context, f recorder.Failure) {
	s.calls = append(s.calls, f)
}

func TestMulti_FansOutToEveryRecorder(t *testing.T) {
	a, b := &spyRecorder{}, &spyRecorder{}
	multi := recorder.Multi{a, b, nil}

	f := recorder.Failure{Original: "신라면", Normalized: "신라면", ErrorMessage: "no_results"}
	multi.RecordFailure(context.Background(), f)

	require.Len(t, a.calls, 1)
	require.Len(t, b.calls, 1)
	assert.Equal(t, f, a.calls[0])
}

func TestNoop_DiscardsSilently(t *testing.T) {
	assert.NotPanics(t, func() {
		recorder.Noop{}.RecordFailure(context.Background(), recorder.Failure{})
	})
}

func TestFileRecorder_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "failures.jsonl")

	r, err := recorder.NewFileRecorder(path)
	require.NoError(t, err)

	r.RecordFailure(context.Background(), recorder.Failure{Original: "a", ErrorMessage: "no_results"})
	r.RecordFailure(context.Background(), recorder.Failure{Original: "b", ErrorMessage: "timeout"})

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestFileRecorder_EmptyPathUsesDefault(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)

	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))

	r, err := recorder.NewFileRecorder("")
	require.NoError(t, err)
	require.NotNil(t, r)
}
