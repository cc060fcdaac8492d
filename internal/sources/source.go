package sources

import (
	"context"
	"fmt"
	"strings"

	"request-tracker/internal/config"
	"request-tracker/internal/model"
)

// ResidentQueryParam is how every list endpoint is scoped to a resident.
const ResidentQueryParam = "rp_id"

// Source is one upstream request resource.
type Source interface {
	Kind() model.Kind
	Fetch(ctx context.Context, residentID string) ([]model.Record, error)
	Cancel(ctx context.Context, id string) error
}

// EndpointSource is a Source backed by a list path and a cancel path with
// an {id} placeholder.
type EndpointSource struct {
	kind       model.Kind
	client     *Client
	listPath   string
	cancelPath string
}

func NewEndpointSource(kind model.Kind, client *Client, listPath, cancelPath string) *EndpointSource {
	return &EndpointSource{kind: kind, client: client, listPath: listPath, cancelPath: cancelPath}
}

func (s *EndpointSource) Kind() model.Kind {
	return s.kind
}

// Fetch tags every row with the source's kind.
func (s *EndpointSource) Fetch(ctx context.Context, residentID string) ([]model.Record, error) {
	rows, err := s.client.GetRows(ctx, s.listPath, map[string]string{ResidentQueryParam: residentID})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.kind, err)
	}
	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		records = append(records, model.Record{Kind: s.kind, Fields: row})
	}
	return records, nil
}

func (s *EndpointSource) Cancel(ctx context.Context, id string) error {
	path := strings.ReplaceAll(s.cancelPath, "{id}", id)
	if err := s.client.Post(ctx, path); err != nil {
		return fmt.Errorf("cancel %s %s: %w", s.kind, id, err)
	}
	return nil
}

// Registry holds one Source per kind.
type Registry struct {
	sources map[model.Kind]Source
}

func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{sources: make(map[model.Kind]Source, len(srcs))}
	for _, s := range srcs {
		r.sources[s.Kind()] = s
	}
	return r
}

// NewRegistryFromConfig wires the three barangay endpoints onto client.
func NewRegistryFromConfig(client *Client, ep config.Endpoints) *Registry {
	return NewRegistry(
		NewEndpointSource(model.KindPersonal, client, ep.Personal, ep.CancelPersonal),
		NewEndpointSource(model.KindBusiness, client, ep.Business, ep.CancelBusiness),
		NewEndpointSource(model.KindServiceCharge, client, ep.ServiceCharge, ep.CancelServiceCharge),
	)
}

func (r *Registry) Get(kind model.Kind) (Source, bool) {
	s, ok := r.sources[kind]
	return s, ok
}

// Cancel dispatches to the cancel endpoint of kind.
func (r *Registry) Cancel(ctx context.Context, kind model.Kind, id string) error {
	s, ok := r.Get(kind)
	if !ok {
		return fmt.Errorf("no source registered for %s", kind)
	}
	return s.Cancel(ctx, id)
}
