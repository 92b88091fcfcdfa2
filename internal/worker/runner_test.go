package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitFinished(t *testing.T, r *Runner[string], seq uint64) Event[string] {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.Events():
			if ev.Kind == Finished && ev.Seq == seq {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for job %d", seq)
		}
	}
}

func TestRunnerDone(t *testing.T) {
	r := NewRunner[string](16)
	defer r.Close()

	seq := r.Start("normal", func(ctx context.Context, progress func(int)) (any, error) {
		for i := 0; i <= 4; i++ {
			progress(i * 25)
		}
		return 42, nil
	})
	var sawStart, sawProgress bool
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.Events():
			switch ev.Kind {
			case Started:
				sawStart = true
			case Progress:
				sawProgress = true
			case Finished:
				if ev.Outcome != Done || ev.Result.(int) != 42 {
					t.Fatalf("unexpected finish %+v", ev)
				}
				if !sawStart || !sawProgress {
					t.Fatalf("missing lifecycle events start=%v progress=%v", sawStart, sawProgress)
				}
				if !r.IsLatest("normal", seq) {
					t.Fatalf("finished job should still be latest")
				}
				return
			}
		case <-timeout:
			t.Fatalf("timed out")
		}
	}
}

func blockingJob(release <-chan struct{}) Job {
	return func(ctx context.Context, progress func(int)) (any, error) {
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return "ok", nil
			default:
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRunnerRestartStopsPrevious(t *testing.T) {
	r := NewRunner[string](16)
	defer r.Close()

	release := make(chan struct{})
	first := r.Start("noise", blockingJob(release))
	second := r.Start("noise", blockingJob(release))

	ev := waitFinished(t, r, first)
	if ev.Outcome != Stopped {
		t.Fatalf("replaced job outcome = %s, expected stopped", ev.Outcome)
	}
	if r.IsLatest("noise", first) || !r.IsLatest("noise", second) {
		t.Fatalf("latest bookkeeping wrong")
	}
	close(release)
	ev = waitFinished(t, r, second)
	if ev.Outcome != Done || ev.Result != "ok" {
		t.Fatalf("second job = %+v", ev)
	}
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner[int](16)
	defer r.Close()

	seq := r.Start(1, blockingJob(make(chan struct{})))
	if !r.Busy(1) {
		t.Fatalf("job should be busy")
	}
	if !r.Stop(1) {
		t.Fatalf("Stop should report a running job")
	}
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.Events():
			if ev.Kind == Finished && ev.Seq == seq {
				if ev.Outcome != Stopped {
					t.Fatalf("outcome = %s", ev.Outcome)
				}
				return
			}
		case <-timeout:
			t.Fatalf("timed out")
		}
	}
}

func TestRunnerFailed(t *testing.T) {
	r := NewRunner[string](16)
	defer r.Close()
	boom := errors.New("boom")
	seq := r.Start("x", func(context.Context, func(int)) (any, error) { return nil, boom })
	ev := waitFinished(t, r, seq)
	if ev.Outcome != Failed || !errors.Is(ev.Err, boom) {
		t.Fatalf("unexpected %+v", ev)
	}
}

func TestRunnerCloseCancelsJobs(t *testing.T) {
	r := NewRunner[string](1)
	r.Start("a", blockingJob(make(chan struct{})))
	r.Start("b", blockingJob(make(chan struct{})))
	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not return")
	}
	if r.Start("c", blockingJob(nil)) != 0 {
		t.Fatalf("Start after Close should return 0")
	}
	for range r.Events() {
	}
}
