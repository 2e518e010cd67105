package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunNowWithoutDatabase(t *testing.T) {
	svc := New(nil, nil, 1)
	details, err := svc.RunNow(context.Background(), "payslip_render", "org-1", func(context.Context) (any, error) {
		return map[string]int{"rendered": 2}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.(map[string]int)["rendered"] != 2 {
		t.Fatalf("unexpected details %v", details)
	}

	boom := errors.New("boom")
	if _, err := svc.RunNow(context.Background(), "payslip_render", "org-1", func(context.Context) (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New(nil, nil, 1)
	svc.Start(ctx)

	done := make(chan struct{})
	if !svc.Enqueue("payslip_render", "org-1", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}) {
		t.Fatal("expected job to be queued")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc := New(nil, nil, 1)
	noop := func(context.Context) (any, error) { return nil, nil }
	if !svc.Enqueue("a", "org-1", noop) {
		t.Fatal("expected first job to be queued")
	}
	if svc.Enqueue("b", "org-1", noop) {
		t.Fatal("expected full queue")
	}
}
