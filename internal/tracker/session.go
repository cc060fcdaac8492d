// Package tracker holds the per-screen state of a resident's request list:
// the last fetched aggregate and the facet/paging view state layered on it.
package tracker

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"request-tracker/internal/apperr"
	"request-tracker/internal/cancel"
	"request-tracker/internal/engine"
	"request-tracker/internal/model"
	"request-tracker/internal/normalize"
)

// AggregateFetcher loads a resident's requests from every source.
type AggregateFetcher interface {
	FetchAggregate(ctx context.Context, residentID string) (*model.Aggregate, error)
}

// Paging is the forward-only window configuration.
type Paging struct {
	Initial   int
	Increment int
}

// ViewState is ephemeral and never persisted.
type ViewState struct {
	Tab         model.Kind
	Status      string
	Payment     string
	Search      string
	PageSize    int
	LoadingMore bool
}

// View is one render of the session.
type View struct {
	State  ViewState
	Counts map[model.Kind]int
	Result engine.Result
}

type Session struct {
	residentID string
	fetcher    AggregateFetcher
	canceller  *cancel.Canceller
	paging     Paging
	logger     *zap.Logger

	mu    sync.Mutex
	agg   *model.Aggregate
	err   error
	state ViewState
}

// NewSession opens a session on the personal tab with every filter at
// "all". The aggregate is empty until Refresh.
func NewSession(residentID string, fetcher AggregateFetcher, canceller *cancel.Canceller, paging Paging, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		residentID: strings.TrimSpace(residentID),
		fetcher:    fetcher,
		canceller:  canceller,
		paging:     paging,
		logger:     logger,
		state: ViewState{
			Tab:      model.KindPersonal,
			Status:   model.FilterAll,
			Payment:  model.FilterAll,
			PageSize: paging.Initial,
		},
	}
}

func (s *Session) ResidentID() string {
	return s.residentID
}

// Refresh replaces the aggregate wholesale. It runs on mount, focus,
// reconnect and after a successful cancel. A failed fetch leaves no data
// behind.
func (s *Session) Refresh(ctx context.Context) error {
	agg, err := s.fetcher.FetchAggregate(ctx, s.residentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.agg = nil
		s.err = err
		return err
	}
	s.agg = agg
	s.err = nil
	s.logger.Debug("aggregate refreshed",
		zap.String("resident_id", s.residentID),
		zap.Int("personal", len(agg.Personal)),
		zap.Int("business", len(agg.Business)),
		zap.Int("service_charge", len(agg.ServiceCharge)))
	return nil
}

func (s *Session) SetTab(tab model.Kind) {
	s.update(func(v *ViewState) bool {
		if v.Tab == tab {
			return false
		}
		v.Tab = tab
		return true
	})
}

func (s *Session) SetStatusFilter(status string) {
	status = facet(status)
	s.update(func(v *ViewState) bool {
		if v.Status == status {
			return false
		}
		v.Status = status
		return true
	})
}

func (s *Session) SetPaymentFilter(payment string) {
	payment = facet(payment)
	s.update(func(v *ViewState) bool {
		if v.Payment == payment {
			return false
		}
		v.Payment = payment
		return true
	})
}

func (s *Session) SetSearch(search string) {
	s.update(func(v *ViewState) bool {
		if v.Search == search {
			return false
		}
		v.Search = search
		return true
	})
}

// update applies fn and, when it changed something, rewinds paging.
func (s *Session) update(fn func(*ViewState) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn(&s.state) {
		s.state.PageSize = s.paging.Initial
		s.state.LoadingMore = false
	}
}

// LoadMore grows the window by one increment. It reports false when there
// is nothing left to reveal.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agg == nil {
		return false
	}
	if !s.processLocked().HasMore {
		return false
	}
	s.state.PageSize += s.paging.Increment
	s.state.LoadingMore = true
	return true
}

// State returns a copy of the view state.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View derives the current window. It returns the last fetch error, or a
// NOT_FOUND error before the first successful fetch.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return View{State: s.state}, s.err
	}
	if s.agg == nil {
		return View{State: s.state}, apperr.New(apperr.CodeNotFound, "Requests have not been loaded")
	}
	return View{
		State:  s.state,
		Counts: s.agg.Counts(),
		Result: s.processLocked(),
	}, nil
}

// Rows renders the windowed records of v.
func (s *Session) Rows(v View) []model.RequestView {
	rows := make([]model.RequestView, 0, len(v.Result.Windowed))
	for _, rec := range v.Result.Windowed {
		rows = append(rows, s.row(rec))
	}
	return rows
}

func (s *Session) row(rec model.Record) model.RequestView {
	id := rec.ID()
	cancelling := s.canceller != nil && s.canceller.State(rec.Kind, id) == cancel.StateCancelling
	return model.RequestView{
		Kind:          rec.Kind,
		ID:            id,
		Purpose:       rec.Purpose(),
		RawStatus:     rec.RawStatus(),
		Status:        normalize.RecordStatus(rec),
		Payment:       normalize.EffectivePayment(rec),
		RequestedAt:   rec.RequestedAt(),
		CompletedAt:   rec.CompletedAt(),
		PaidAt:        rec.PaidAt(),
		DeclineReason: rec.DeclineReason(),
		CanCancel:     engine.CanCancel(rec) && !cancelling,
		Cancelling:    cancelling,
	}
}

// Cancel cancels the record of kind with the given id and refetches the
// aggregate on success.
func (s *Session) Cancel(ctx context.Context, kind model.Kind, id string, confirmed bool) (cancel.Outcome, error) {
	if s.canceller == nil {
		return cancel.Outcome{Kind: kind, ID: id, State: cancel.StateActive}, apperr.New(apperr.CodeInternal, "Cancelling is not available")
	}
	s.mu.Lock()
	rec, ok := s.agg.Find(kind, id)
	s.mu.Unlock()
	if !ok {
		return cancel.Outcome{Kind: kind, ID: id, State: cancel.StateActive}, apperr.New(apperr.CodeNotFound, "Request not found")
	}
	return s.canceller.Cancel(ctx, rec, confirmed, s.Refresh)
}

func (s *Session) processLocked() engine.Result {
	return engine.Process(s.agg.Of(s.state.Tab), engine.Query{
		Tab:      s.state.Tab,
		Status:   s.state.Status,
		Payment:  s.state.Payment,
		Search:   s.state.Search,
		PageSize: s.state.PageSize,
	})
}

func facet(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return model.FilterAll
	}
	return v
}
