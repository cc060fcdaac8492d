// Package normalize collapses free-form upstream status strings into the
// tracker's canonical status and payment enums. Every function here is total.
package normalize

import (
	"strings"

	"request-tracker/internal/model"
)

// statusGroups is checked in order; the first group with a matching keyword
// wins, so "declined and cancelled" is declined.
var statusGroups = []struct {
	status   model.Status
	keywords []string
}{
	{model.StatusDeclined, []string{"declined", "rejected"}},
	{model.StatusCancelled, []string{"cancel"}},
	{model.StatusCompleted, []string{"complete", "approved", "issued", "done"}},
	{model.StatusInProgress, []string{"progress", "processing", "pending", "submitted", "under review"}},
}

// Status maps a raw status onto one of the four canonical states,
// defaulting to in_progress.
func Status(raw string) model.Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return model.StatusInProgress
	}
	for _, g := range statusGroups {
		for _, kw := range g.keywords {
			if strings.Contains(s, kw) {
				return g.status
			}
		}
	}
	return model.StatusInProgress
}

// Payment matches the raw payment status exactly, defaulting to unknown.
func Payment(raw string) model.Payment {
	switch p := model.Payment(strings.ToLower(strings.TrimSpace(raw))); p {
	case model.PaymentPaid, model.PaymentUnpaid, model.PaymentDeclined, model.PaymentCancelled:
		return p
	}
	return model.PaymentUnknown
}

// RecordStatus normalizes a record's resolved status field.
func RecordStatus(rec model.Record) model.Status {
	return Status(rec.RawStatus())
}

// EffectivePayment is the payment state filtering sees: once the request
// itself is cancelled or declined, its payment is reported the same way
// whatever the payment field says.
func EffectivePayment(rec model.Record) model.Payment {
	switch RecordStatus(rec) {
	case model.StatusCancelled:
		return model.PaymentCancelled
	case model.StatusDeclined:
		return model.PaymentDeclined
	}
	return Payment(rec.RawPaymentStatus())
}

// Priority orders statuses for display: active requests first.
func Priority(s model.Status) int {
	switch s {
	case model.StatusInProgress:
		return 1
	case model.StatusCompleted:
		return 2
	case model.StatusCancelled:
		return 3
	case model.StatusDeclined:
		return 4
	}
	return 1
}
