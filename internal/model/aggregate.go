package model

// Aggregate is one fetch cycle's snapshot of a resident's requests. It is
// rebuilt from scratch on every fetch.
type Aggregate struct {
	Personal      []Record `json:"personal"`
	Business      []Record `json:"business"`
	ServiceCharge []Record `json:"service_charge"`
}

// Of returns the records behind a tab.
func (a *Aggregate) Of(kind Kind) []Record {
	if a == nil {
		return nil
	}
	switch kind {
	case KindPersonal:
		return a.Personal
	case KindBusiness:
		return a.Business
	case KindServiceCharge:
		return a.ServiceCharge
	}
	return nil
}

// Set replaces the records behind a tab.
func (a *Aggregate) Set(kind Kind, records []Record) {
	switch kind {
	case KindPersonal:
		a.Personal = records
	case KindBusiness:
		a.Business = records
	case KindServiceCharge:
		a.ServiceCharge = records
	}
}

// Find locates a record of the given kind by its populated id.
func (a *Aggregate) Find(kind Kind, id string) (Record, bool) {
	for _, rec := range a.Of(kind) {
		if rec.ID() == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Counts reports the number of records per tab.
func (a *Aggregate) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		counts[k] = len(a.Of(k))
	}
	return counts
}
