package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

func TestSinkName(t *testing.T) {
	require.Equal(t, "log", SinkName(&LogSink{}))
	require.Equal(t, "*bridge.recorder", SinkName(&recorder{}))
}

func TestSinkRunnerWait(t *testing.T) {
	failure := errors.New("broker gone")
	runner := startSinks(context.Background(), []Runnable{
		runFunc(func(context.Context) error { return nil }),
		runFunc(func(context.Context) error { return context.Canceled }),
		&failingRunnable{runErr: failure},
	})
	err := runner.wait(nil)
	errs, ok := err.(SinkErrors)
	require.True(t, ok)
	require.Len(t, errs, 1)
	require.Equal(t, "failing", errs[0].Sink)
	require.Equal(t, OpRun, errs[0].Op)
	require.True(t, errors.Is(err.(SinkErrors)[0], failure))

	require.NoError(t, startSinks(context.Background(), nil).wait(nil))
}

func TestSinkRunnerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := startSinks(ctx, []Runnable{
		runFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	cancel()
	done := make(chan error, 1)
	go func() {
		done <- runner.wait(nil)
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sinks not stopped")
	}
}
