package model

import "testing"

func TestResolveOrder(t *testing.T) {
	rec := Record{Kind: KindBusiness, Fields: map[string]any{
		"req_date":         "2024-03-01",
		"req_request_date": nil,
		"pay_date_req":     "2020-01-01",
	}}
	if got := rec.RequestedAt(); got != "2024-03-01" {
		t.Fatalf("expected first non-null alias, got %q", got)
	}

	if _, ok := rec.Resolve("missing", "also_missing"); ok {
		t.Fatal("expected no hit")
	}
}

func TestResidentIDAliases(t *testing.T) {
	cases := []struct {
		fields map[string]any
		want   string
		ok     bool
	}{
		{map[string]any{"rp_id": "R1"}, "R1", true},
		{map[string]any{"rp": map[string]any{"rp_id": "R2"}}, "R2", true},
		{map[string]any{"rp": float64(12)}, "12", true},
		{map[string]any{"resident_id": "R3"}, "R3", true},
		{map[string]any{"rp": map[string]any{"name": "x"}}, "", false},
		{map[string]any{}, "", false},
	}
	for i, c := range cases {
		got, ok := Record{Kind: KindPersonal, Fields: c.fields}.ResidentID()
		if ok != c.ok || got != c.want {
			t.Fatalf("case %d: expected (%q, %v), got (%q, %v)", i, c.want, c.ok, got, ok)
		}
	}
}

func TestCancelTarget(t *testing.T) {
	kind, id, ok := Record{Fields: map[string]any{"pay_id": float64(31)}}.CancelTarget()
	if !ok || kind != KindServiceCharge || id != "31" {
		t.Fatalf("expected service_charge/31, got %s/%s ok=%v", kind, id, ok)
	}

	kind, id, ok = Record{Fields: map[string]any{"cr_id": nil, "bpr_id": " 9 "}}.CancelTarget()
	if !ok || kind != KindBusiness || id != "9" {
		t.Fatalf("expected business/9, got %s/%s ok=%v", kind, id, ok)
	}

	if _, _, ok := (Record{Fields: map[string]any{"cr_id": ""}}).CancelTarget(); ok {
		t.Fatal("expected blank id to be unpopulated")
	}
}

func TestPurposeFor(t *testing.T) {
	nested := Record{Kind: KindPersonal, Fields: map[string]any{"purpose": map[string]any{"pr_purpose": "Employment"}}}
	if got := nested.Purpose(); got != "Employment" {
		t.Fatalf("expected nested purpose, got %q", got)
	}

	plain := Record{Kind: KindPersonal, Fields: map[string]any{"purpose": " Scholarship "}}
	if got := plain.Purpose(); got != "Scholarship" {
		t.Fatalf("expected plain purpose, got %q", got)
	}

	if got := (Record{Kind: KindPersonal, Fields: map[string]any{}}).Purpose(); got != EmptyPurpose {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := (Record{Kind: KindBusiness, Fields: map[string]any{}}).Purpose(); got != "Business Permit" {
		t.Fatalf("expected business fallback, got %q", got)
	}
	if got := (Record{Kind: KindServiceCharge, Fields: map[string]any{"sr_type": "Summon"}}).Purpose(); got != "Summon" {
		t.Fatalf("expected sr_type, got %q", got)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"personal":       KindPersonal,
		"Business":       KindBusiness,
		"serviceCharge":  KindServiceCharge,
		"service-charge": KindServiceCharge,
	} {
		if got, ok := ParseKind(in); !ok || got != want {
			t.Fatalf("ParseKind(%q): expected %s, got %s ok=%v", in, want, got, ok)
		}
	}
	if _, ok := ParseKind("tax"); ok {
		t.Fatal("expected unknown kind")
	}
}

func TestAggregateAccessors(t *testing.T) {
	agg := &Aggregate{}
	agg.Set(KindBusiness, []Record{{Kind: KindBusiness, Fields: map[string]any{"bpr_id": "5"}}})

	if got := agg.Counts(); got[KindBusiness] != 1 || got[KindPersonal] != 0 {
		t.Fatalf("unexpected counts %v", got)
	}
	if _, ok := agg.Find(KindBusiness, "5"); !ok {
		t.Fatal("expected to find business 5")
	}
	if _, ok := agg.Find(KindPersonal, "5"); ok {
		t.Fatal("expected kind-scoped lookup")
	}

	var nilAgg *Aggregate
	if nilAgg.Of(KindPersonal) != nil {
		t.Fatal("expected nil records from nil aggregate")
	}
}
