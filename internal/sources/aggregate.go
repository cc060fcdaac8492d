package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"request-tracker/internal/apperr"
	"request-tracker/internal/engine"
	"request-tracker/internal/model"
)

// Fetcher builds a resident's Aggregate from the registry. Nothing is
// cached; every call goes to the network.
type Fetcher struct {
	registry           *Registry
	trustServiceCharge bool
	logger             *zap.Logger
}

// NewFetcher returns a Fetcher. With trustServiceCharge set, service-charge
// rows skip the ownership filter.
func NewFetcher(registry *Registry, trustServiceCharge bool, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{registry: registry, trustServiceCharge: trustServiceCharge, logger: logger}
}

// FetchAggregate fetches all three kinds concurrently. Either all three
// resolve or the whole aggregate fails.
func (f *Fetcher) FetchAggregate(ctx context.Context, residentID string) (*model.Aggregate, error) {
	residentID = strings.TrimSpace(residentID)
	if residentID == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "Resident id is required")
	}

	results := make([][]model.Record, len(model.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range model.Kinds {
		src, ok := f.registry.Get(kind)
		if !ok {
			return nil, apperr.New(apperr.CodeInternal, fmt.Sprintf("No source registered for %s", kind))
		}
		g.Go(func() error {
			records, err := src.Fetch(gctx, residentID)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Warn("aggregate fetch failed", zap.String("resident_id", residentID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeFetchAggregate, "Could not load your requests", err)
	}

	agg := &model.Aggregate{}
	for i, kind := range model.Kinds {
		records := results[i]
		if kind != model.KindServiceCharge || !f.trustServiceCharge {
			owned := engine.FilterByResident(records, residentID)
			if dropped := len(records) - len(owned); dropped > 0 {
				f.logger.Debug("dropped foreign records",
					zap.String("resident_id", residentID),
					zap.String("kind", string(kind)),
					zap.Int("dropped", dropped))
			}
			records = owned
		}
		agg.Set(kind, records)
	}
	return agg, nil
}
