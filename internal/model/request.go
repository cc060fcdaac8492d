package model

import (
	"strconv"
	"strings"
)

// Kind identifies which upstream source produced a record. It is assigned
// by the fetcher, never read from the payload.
type Kind string

const (
	KindPersonal      Kind = "personal"
	KindBusiness      Kind = "business"
	KindServiceCharge Kind = "service_charge"
)

// Kinds lists every kind in tab order.
var Kinds = []Kind{KindPersonal, KindBusiness, KindServiceCharge}

// ParseKind accepts the canonical names plus the camel and dashed spellings
// mobile clients send.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "personal", "certificate", "cert":
		return KindPersonal, true
	case "business", "business_permit", "permit":
		return KindBusiness, true
	case "service_charge", "servicecharge", "service-charge", "service":
		return KindServiceCharge, true
	}
	return "", false
}

// Record is one raw request row as returned by an upstream endpoint.
type Record struct {
	Kind   Kind
	Fields map[string]any
}

// Field alias lists. The three upstream resources evolved independently so
// the same logical field lives under different names; order is lookup order.
var (
	ResidentAliases      = []string{"rp_id", "rp.rp_id", "rp", "resident_id"}
	StatusAliases        = []string{"cr_req_status", "req_status", "pay_req_status", "status"}
	PaymentStatusAliases = []string{"cr_req_payment_status", "req_payment_status", "pay_status", "payment_status"}
	RequestedAtAliases   = []string{"req_request_date", "req_date", "cr_req_request_date", "pay_date_req"}
	CompletedAtAliases   = []string{"cr_date_completed", "req_date_completed", "pay_date_completed"}
	PaidAtAliases        = []string{"cr_date_paid", "req_date_paid", "pay_date_paid"}
	DeclineReasonAliases = []string{"cr_reason", "req_reason", "pay_reason", "decline_reason"}
)

// idFields maps each id field name to the kind whose cancel endpoint owns it.
var idFields = []struct {
	Field string
	Kind  Kind
}{
	{"cr_id", KindPersonal},
	{"bpr_id", KindBusiness},
	{"pay_id", KindServiceCharge},
}

// EmptyPurpose is shown when a record carries no usable purpose.
const EmptyPurpose = "—"

var purposeFallback = map[Kind]string{
	KindBusiness:      "Business Permit",
	KindServiceCharge: "Service Charge",
}

var purposeAliases = map[Kind][]string{
	KindPersonal:      {"purpose", "pr_purpose", "cr_purpose"},
	KindBusiness:      {"req_purpose", "bpr_purpose", "purpose"},
	KindServiceCharge: {"pay_purpose", "sr_type", "purpose"},
}

// Resolve returns the first alias holding a non-null value. Dotted aliases
// descend one object level ("rp.rp_id").
func (r Record) Resolve(aliases ...string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := lookup(r.Fields, alias); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ResolveString is Resolve restricted to scalar values rendered as strings.
func (r Record) ResolveString(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		v, ok := lookup(r.Fields, alias)
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok {
			return s, true
		}
	}
	return "", false
}

func (r Record) ResidentID() (string, bool) {
	return r.ResolveString(ResidentAliases...)
}

func (r Record) RawStatus() string {
	s, _ := r.ResolveString(StatusAliases...)
	return s
}

func (r Record) RawPaymentStatus() string {
	s, _ := r.ResolveString(PaymentStatusAliases...)
	return s
}

func (r Record) RequestedAt() string {
	s, _ := r.ResolveString(RequestedAtAliases...)
	return s
}

func (r Record) CompletedAt() string {
	s, _ := r.ResolveString(CompletedAtAliases...)
	return s
}

func (r Record) PaidAt() string {
	s, _ := r.ResolveString(PaidAtAliases...)
	return s
}

func (r Record) DeclineReason() string {
	s, _ := r.ResolveString(DeclineReasonAliases...)
	return s
}

// CancelTarget reports the populated id field and the kind whose cancel
// endpoint accepts it. Only one id field is ever populated per record.
func (r Record) CancelTarget() (Kind, string, bool) {
	for _, f := range idFields {
		v, ok := r.Fields[f.Field]
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok && strings.TrimSpace(s) != "" {
			return f.Kind, strings.TrimSpace(s), true
		}
	}
	return "", "", false
}

// ID is the populated id field value, or "".
func (r Record) ID() string {
	_, id, _ := r.CancelTarget()
	return id
}

// Purpose extracts the purpose using the record's own kind.
func (r Record) Purpose() string {
	return r.PurposeFor(r.Kind)
}

// PurposeFor extracts the purpose the way the given tab renders it. Personal
// purposes may be an object carrying pr_purpose.
func (r Record) PurposeFor(kind Kind) string {
	for _, alias := range purposeAliases[kind] {
		v, ok := r.Fields[alias]
		if !ok || v == nil {
			continue
		}
		if obj, ok := v.(map[string]any); ok {
			v = obj["pr_purpose"]
		}
		if s, ok := scalarString(v); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if label, ok := purposeFallback[kind]; ok {
		return label
	}
	return EmptyPurpose
}

func lookup(fields map[string]any, alias string) (any, bool) {
	head, rest, nested := strings.Cut(alias, ".")
	v, ok := fields[head]
	if !ok {
		return nil, false
	}
	if !nested {
		return v, true
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok = obj[rest]
	return v, ok
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
