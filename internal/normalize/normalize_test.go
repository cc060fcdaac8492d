package normalize

import (
	"testing"

	"request-tracker/internal/model"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want model.Status
	}{
		{"", model.StatusInProgress},
		{"   ", model.StatusInProgress},
		{"Submitted", model.StatusInProgress},
		{"Under Review", model.StatusInProgress},
		{"PROCESSING", model.StatusInProgress},
		{"Pending", model.StatusInProgress},
		{"Completed", model.StatusCompleted},
		{"approved", model.StatusCompleted},
		{"  Issued ", model.StatusCompleted},
		{"Done", model.StatusCompleted},
		{"Cancelled", model.StatusCancelled},
		{"canceled", model.StatusCancelled},
		{"Declined", model.StatusDeclined},
		{"Rejected by clerk", model.StatusDeclined},
		{"declined and cancelled", model.StatusDeclined},
		{"cancelled after approval", model.StatusCancelled},
		{"for pickup", model.StatusInProgress},
	}
	for _, c := range cases {
		if got := Status(c.raw); got != c.want {
			t.Fatalf("Status(%q): expected %s, got %s", c.raw, c.want, got)
		}
	}
}

func TestPayment(t *testing.T) {
	cases := []struct {
		raw  string
		want model.Payment
	}{
		{"Paid", model.PaymentPaid},
		{" UNPAID ", model.PaymentUnpaid},
		{"Declined", model.PaymentDeclined},
		{"cancelled", model.PaymentCancelled},
		{"", model.PaymentUnknown},
		{"pending", model.PaymentUnknown},
		{"partially paid", model.PaymentUnknown},
	}
	for _, c := range cases {
		if got := Payment(c.raw); got != c.want {
			t.Fatalf("Payment(%q): expected %s, got %s", c.raw, c.want, got)
		}
	}
}

func TestEffectivePaymentOverride(t *testing.T) {
	rec := model.Record{Kind: model.KindPersonal, Fields: map[string]any{
		"cr_req_status":         "Cancelled",
		"cr_req_payment_status": "unpaid",
	}}
	if got := EffectivePayment(rec); got != model.PaymentCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}

	rec.Fields["cr_req_status"] = "Rejected"
	if got := EffectivePayment(rec); got != model.PaymentDeclined {
		t.Fatalf("expected declined, got %s", got)
	}

	rec.Fields["cr_req_status"] = "Submitted"
	if got := EffectivePayment(rec); got != model.PaymentUnpaid {
		t.Fatalf("expected unpaid, got %s", got)
	}
}

func TestPriority(t *testing.T) {
	order := []model.Status{model.StatusInProgress, model.StatusCompleted, model.StatusCancelled, model.StatusDeclined}
	for i := 1; i < len(order); i++ {
		if Priority(order[i-1]) >= Priority(order[i]) {
			t.Fatalf("expected %s before %s", order[i-1], order[i])
		}
	}
}
