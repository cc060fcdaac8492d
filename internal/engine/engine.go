package engine

import (
	"slices"
	"strings"

	"request-tracker/internal/model"
	"request-tracker/internal/normalize"
)

// Query is the facet state a list is derived from.
type Query struct {
	Tab      model.Kind
	Status   string
	Payment  string
	Search   string
	PageSize int
}

// Result holds the full filtered ordering and the visible prefix of it.
type Result struct {
	Filtered []model.Record
	Windowed []model.Record
	HasMore  bool
}

// FilterByResident keeps the records whose resident id matches residentID
// after trimming. Records with no resident field are dropped.
func FilterByResident(records []model.Record, residentID string) []model.Record {
	want := strings.TrimSpace(residentID)
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		got, ok := rec.ResidentID()
		if !ok || strings.TrimSpace(got) != want {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Process filters, sorts and windows records. It never fails: unknown
// statuses count as in_progress, bad dates as the epoch.
func Process(records []model.Record, q Query) Result {
	search := strings.ToLower(q.Search)

	filtered := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if !matchStatus(rec, q.Status) || !matchPayment(rec, q.Payment) || !matchSearch(rec, q.Tab, search) {
			continue
		}
		filtered = append(filtered, rec)
	}

	Sort(filtered)

	n := q.PageSize
	if n < 0 {
		n = 0
	}
	if n > len(filtered) {
		n = len(filtered)
	}
	return Result{
		Filtered: filtered,
		Windowed: filtered[:n:n],
		HasMore:  n < len(filtered),
	}
}

// Sort orders records by status priority, then newest request first. The
// sort is stable so equal keys keep upstream order.
func Sort(records []model.Record) {
	type key struct {
		priority int
		at       int64
	}
	keys := make([]key, len(records))
	idx := make([]int, len(records))
	for i, rec := range records {
		idx[i] = i
		keys[i] = key{
			priority: normalize.Priority(normalize.RecordStatus(rec)),
			at:       ParseDate(rec.RequestedAt()).Unix(),
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		ka, kb := keys[a], keys[b]
		if ka.priority != kb.priority {
			return ka.priority - kb.priority
		}
		switch {
		case ka.at > kb.at:
			return -1
		case ka.at < kb.at:
			return 1
		}
		return 0
	})
	sorted := make([]model.Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

// CanCancel reports whether a resident may cancel the record themselves:
// still active, addressable by id, and not already paid.
func CanCancel(rec model.Record) bool {
	switch normalize.RecordStatus(rec) {
	case model.StatusCompleted, model.StatusCancelled, model.StatusDeclined:
		return false
	}
	if _, _, ok := rec.CancelTarget(); !ok {
		return false
	}
	switch normalize.EffectivePayment(rec) {
	case model.PaymentUnpaid, model.PaymentUnknown:
		return true
	}
	return false
}

func matchStatus(rec model.Record, filter string) bool {
	if isAll(filter) {
		return true
	}
	return string(normalize.RecordStatus(rec)) == strings.ToLower(strings.TrimSpace(filter))
}

// A request that was itself cancelled or declined is never listed under a
// specific payment filter, even when its payment field reads the same word.
func matchPayment(rec model.Record, filter string) bool {
	if isAll(filter) {
		return true
	}
	p := normalize.EffectivePayment(rec)
	if p == model.PaymentDeclined || p == model.PaymentCancelled {
		return false
	}
	return string(p) == strings.ToLower(strings.TrimSpace(filter))
}

func matchSearch(rec model.Record, tab model.Kind, search string) bool {
	if search == "" {
		return true
	}
	kind := tab
	if kind == "" {
		kind = rec.Kind
	}
	return strings.Contains(strings.ToLower(rec.PurposeFor(kind)), search)
}

func isAll(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, model.FilterAll)
}
