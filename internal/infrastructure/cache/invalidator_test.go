package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/asakaida/pagetypes/internal/repositories/postgres"
	"github.com/lib/pq"
)

type recordingTarget struct {
	invalidated []int64
	cleared     int
}

func (r *recordingTarget) Invalidate(ctx context.Context, pageTypeID int64) {
	r.invalidated = append(r.invalidated, pageTypeID)
}

func (r *recordingTarget) InvalidateAll(ctx context.Context) {
	r.cleared++
}

func TestInvalidator_Handle(t *testing.T) {
	target := &recordingTarget{}
	inv := NewInvalidator(target, "", nil)
	ctx := context.Background()

	inv.handle(ctx, &pq.Notification{Channel: postgres.PageTypeChangedChannel, Extra: "7"})
	inv.handle(ctx, &pq.Notification{Channel: postgres.PageTypeChangedChannel, Extra: "not-a-number"})
	inv.handle(ctx, &pq.Notification{Channel: postgres.PageTypeChangedChannel, Extra: "12"})
	inv.handle(ctx, nil)

	if !reflect.DeepEqual(target.invalidated, []int64{7, 12}) {
		t.Errorf("invalidated = %v, want [7 12]", target.invalidated)
	}
	if target.cleared != 1 {
		t.Errorf("cleared = %d, want 1", target.cleared)
	}
}

func TestInvalidator_StopWithoutStart(t *testing.T) {
	inv := NewInvalidator(&recordingTarget{}, "", nil)

	if err := inv.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := inv.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestInvalidator_LoopEndsWhenNotifyCloses(t *testing.T) {
	target := &recordingTarget{}
	inv := NewInvalidator(target, "", nil)

	notify := make(chan *pq.Notification, 2)
	notify <- &pq.Notification{Channel: postgres.PageTypeChangedChannel, Extra: "3"}
	close(notify)

	done := make(chan struct{})
	go func() {
		inv.loop(context.Background(), notify, func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not return after the notify channel closed")
	}

	if !reflect.DeepEqual(target.invalidated, []int64{3}) {
		t.Errorf("invalidated = %v, want [3]", target.invalidated)
	}
	if target.cleared != 0 {
		t.Errorf("cleared = %d, want 0", target.cleared)
	}
}
