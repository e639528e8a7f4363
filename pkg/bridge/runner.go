package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// SinkName names a sink in logs and errors. Sinks implementing Named use
// their own name.
func SinkName(sink interface{}) string {
	if named, ok := sink.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", sink)
}

type sinkResult struct {
	sink Runnable
	err  error
}

// sinkRunner runs the background side of sinks (broker connections,
// servers) for the lifetime of a bridge.
type sinkRunner struct {
	resultCh chan sinkResult
	count    int
}

func startSinks(ctx context.Context, runnables []Runnable) *sinkRunner {
	r := &sinkRunner{
		resultCh: make(chan sinkResult, len(runnables)),
		count:    len(runnables),
	}
	for _, runnable := range runnables {
		glog.V(2).Infof("sink %s: starting", SinkName(runnable))
		go func(runnable Runnable) {
			err := runnable.Run(ctx)
			if err != nil && err != context.Canceled {
				glog.Errorf("sink %s: stopped: %v", SinkName(runnable), err)
			} else {
				glog.V(2).Infof("sink %s: stopped", SinkName(runnable))
			}
			r.resultCh <- sinkResult{sink: runnable, err: err}
		}(runnable)
	}
	return r
}

// wait waits until all sinks stop, or returns ErrForcedExit once forced is
// closed.
func (r *sinkRunner) wait(forced <-chan struct{}) error {
	var errs SinkErrors
	for n := 0; n < r.count; n++ {
		select {
		case <-forced:
			return ErrForcedExit
		case res := <-r.resultCh:
			if res.err != context.Canceled {
				errs.add(res.sink, OpRun, res.err)
			}
		}
	}
	return errs.errorOrNil()
}

// HandleSignals returns a context canceled on CtrlC or SIGTERM. A second
// signal stops waiting for sinks to shut down.
func (b *Bridge) HandleSignals(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	forced := make(chan struct{})
	b.forced = forced
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(forced)
	}()
	return ctx
}
