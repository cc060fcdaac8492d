package cancel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"request-tracker/internal/apperr"
	"request-tracker/internal/model"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (d *fakeDispatcher) Cancel(ctx context.Context, kind model.Kind, id string) error {
	d.mu.Lock()
	d.calls = append(d.calls, string(kind)+":"+id)
	d.mu.Unlock()
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	return d.err
}

type recordingNotifier struct {
	notes []model.Notification
}

func (n *recordingNotifier) Notify(note model.Notification) {
	n.notes = append(n.notes, note)
}

func activeRecord(idField, id string) model.Record {
	return model.Record{Kind: model.KindPersonal, Fields: map[string]any{
		idField:                 id,
		"cr_req_status":         "Submitted",
		"cr_req_payment_status": "unpaid",
	}}
}

func TestCancelSuccessDispatchesAndRefetches(t *testing.T) {
	d := &fakeDispatcher{}
	n := &recordingNotifier{}
	refetched := 0
	c := New(d, n, nil)

	out, err := c.Cancel(context.Background(), activeRecord("bpr_id", "42"), true, func(context.Context) error {
		refetched++
		return nil
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.State != StateCancelled {
		t.Fatalf("expected cancelled, got %s", out.State)
	}
	if len(d.calls) != 1 || d.calls[0] != "business:42" {
		t.Fatalf("expected dispatch to business endpoint, got %v", d.calls)
	}
	if refetched != 1 {
		t.Fatalf("expected one refetch, got %d", refetched)
	}
	if len(n.notes) != 1 || n.notes[0].Level != model.LevelSuccess {
		t.Fatalf("expected success notification, got %v", n.notes)
	}
	if c.Busy() {
		t.Fatal("expected slot released")
	}
}

func TestCancelDispatchByIDField(t *testing.T) {
	cases := map[string]string{
		"cr_id":  "personal:1",
		"bpr_id": "business:1",
		"pay_id": "service_charge:1",
	}
	for field, want := range cases {
		d := &fakeDispatcher{}
		c := New(d, &recordingNotifier{}, nil)
		if _, err := c.Cancel(context.Background(), activeRecord(field, "1"), true, nil); err != nil {
			t.Fatalf("%s: cancel: %v", field, err)
		}
		if len(d.calls) != 1 || d.calls[0] != want {
			t.Fatalf("%s: expected %s, got %v", field, want, d.calls)
		}
	}
}

func TestCancelFailureReverts(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("upstream status 500")}
	n := &recordingNotifier{}
	refetched := false
	c := New(d, n, nil)

	rec := activeRecord("cr_id", "7")
	out, err := c.Cancel(context.Background(), rec, true, func(context.Context) error {
		refetched = true
		return nil
	})
	if apperr.CodeOf(err) != apperr.CodeCancelFailed {
		t.Fatalf("expected CANCEL_FAILED, got %v", err)
	}
	if out.State != StateCancelFailed {
		t.Fatalf("expected cancel_failed, got %s", out.State)
	}
	if c.State(model.KindPersonal, "7") != StateActive {
		t.Fatal("expected record back to active")
	}
	if refetched {
		t.Fatal("expected no refetch after failure")
	}
	if len(n.notes) != 1 || n.notes[0].Level != model.LevelError {
		t.Fatalf("expected error notification, got %v", n.notes)
	}
}

func TestCancelUnconfirmedIsNoop(t *testing.T) {
	d := &fakeDispatcher{}
	c := New(d, &recordingNotifier{}, nil)

	out, err := c.Cancel(context.Background(), activeRecord("cr_id", "1"), false, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.State != StateActive || len(d.calls) != 0 {
		t.Fatalf("expected no dispatch, got state=%s calls=%v", out.State, d.calls)
	}
}

func TestCancelRejectsIneligible(t *testing.T) {
	c := New(&fakeDispatcher{}, &recordingNotifier{}, nil)

	paid := activeRecord("cr_id", "1")
	paid.Fields["cr_req_payment_status"] = "paid"
	if _, err := c.Cancel(context.Background(), paid, true, nil); apperr.CodeOf(err) != apperr.CodeNotEligible {
		t.Fatalf("expected NOT_ELIGIBLE for paid, got %v", err)
	}

	done := activeRecord("cr_id", "2")
	done.Fields["cr_req_status"] = "Completed"
	if _, err := c.Cancel(context.Background(), done, true, nil); apperr.CodeOf(err) != apperr.CodeNotEligible {
		t.Fatalf("expected NOT_ELIGIBLE for completed, got %v", err)
	}

	noID := model.Record{Kind: model.KindPersonal, Fields: map[string]any{"cr_req_status": "Submitted"}}
	if _, err := c.Cancel(context.Background(), noID, true, nil); apperr.CodeOf(err) != apperr.CodeNotEligible {
		t.Fatalf("expected NOT_ELIGIBLE without id, got %v", err)
	}
}

func TestCancelSingleSlot(t *testing.T) {
	d := &fakeDispatcher{started: make(chan struct{}), release: make(chan struct{})}
	c := New(d, &recordingNotifier{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Cancel(context.Background(), activeRecord("cr_id", "1"), true, nil)
		done <- err
	}()
	<-d.started

	if got := c.State(model.KindPersonal, "1"); got != StateCancelling {
		t.Fatalf("expected cancelling, got %s", got)
	}
	if got := c.State(model.KindPersonal, "2"); got != StateActive {
		t.Fatalf("expected other record active, got %s", got)
	}

	_, err := c.Cancel(context.Background(), activeRecord("cr_id", "2"), true, nil)
	if apperr.CodeOf(err) != apperr.CodeCancelInFlight {
		t.Fatalf("expected CANCEL_IN_FLIGHT, got %v", err)
	}

	close(d.release)
	if err := <-done; err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if c.Busy() {
		t.Fatal("expected slot free")
	}
}
