package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"csc-scraper/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) Run(ctx context.Context) (pipeline.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s := pipeline.Summary{}
	s.Preprocess.Records = 12
	return s, f.err
}

func (f *fakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (n *recordingNotifier) Notify(ctx context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return nil
}

func TestRunOnceReportsSuccess(t *testing.T) {
	runner := &fakeRunner{}
	notifier := &recordingNotifier{}
	s := NewScheduler(runner, notifier, "csc", 0)

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Preprocess.Records)

	require.Len(t, notifier.titles, 1)
	assert.Contains(t, notifier.titles[0], "csc run finished")
	assert.Contains(t, notifier.bodies[0], "Processed records: 12")
}

func TestRunOnceReportsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("download: disk full")}
	notifier := &recordingNotifier{}
	s := NewScheduler(runner, notifier, "csc", 0)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, notifier.titles, 1)
	assert.Contains(t, notifier.titles[0], "failed")
	assert.Contains(t, notifier.bodies[0], "disk full")
}

func TestRunOnceInterruptedIsNotReported(t *testing.T) {
	runner := &fakeRunner{err: context.Canceled}
	notifier := &recordingNotifier{}
	s := NewScheduler(runner, notifier, "csc", 0)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, notifier.titles)
}

func TestStartRepeatsUntilCancelled(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, nil, "csc", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return runner.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStartOnce(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, nil, "csc", 0)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, runner.Calls())
}
