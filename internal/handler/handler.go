package handler

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"request-tracker/internal/apperr"
	"request-tracker/internal/cancel"
	"request-tracker/internal/model"
	"request-tracker/internal/tracker"
)

const (
	requestIDHeader = "X-Request-ID"
	maxLoadMore     = 1000
)

var (
	validStatus = map[string]bool{
		model.FilterAll:                true,
		string(model.StatusInProgress): true,
		string(model.StatusCompleted):  true,
		string(model.StatusCancelled):  true,
		string(model.StatusDeclined):   true,
	}
	validPayment = map[string]bool{
		model.FilterAll:                true,
		string(model.PaymentPaid):      true,
		string(model.PaymentUnpaid):    true,
		string(model.PaymentDeclined):  true,
		string(model.PaymentCancelled): true,
		string(model.PaymentUnknown):   true,
	}
)

// Handler serves the resident request-tracking API.
type Handler struct {
	fetcher    tracker.AggregateFetcher
	dispatcher cancel.Dispatcher
	paging     tracker.Paging
	timeout    time.Duration
	logger     *zap.Logger

	// one canceller per resident keeps the single in-flight cancel rule
	// across concurrent cancel requests; entries live only while a cancel
	// request for that resident is being served
	mu         sync.Mutex
	cancellers map[string]*cancellerRef
}

type cancellerRef struct {
	canceller *cancel.Canceller
	refs      int
}

func New(fetcher tracker.AggregateFetcher, dispatcher cancel.Dispatcher, paging tracker.Paging, timeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		paging:     paging,
		timeout:    timeout,
		logger:     logger,
		cancellers: make(map[string]*cancellerRef),
	}
}

// Handle routes a request.
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	requestID := string(ctx.Request.Header.Peek(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.Response.Header.Set(requestIDHeader, requestID)
	log := h.logger.With(zap.String("request_id", requestID))

	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case len(parts) == 3 && parts[0] == "residents" && parts[2] == "requests":
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		h.list(ctx, log, parts[1])
	case len(parts) == 6 && parts[0] == "residents" && parts[2] == "requests" && parts[5] == "cancel":
		if !requireMethod(ctx, fasthttp.MethodPost) {
			return
		}
		h.cancelRequest(ctx, log, parts[1], parts[3], parts[4])
	default:
		writeError(ctx, fasthttp.StatusNotFound, string(apperr.CodeNotFound), "Route not found")
	}
}

func (h *Handler) list(ctx *fasthttp.RequestCtx, log *zap.Logger, residentID string) {
	args := ctx.QueryArgs()

	tab := model.KindPersonal
	if raw := string(args.Peek("tab")); raw != "" {
		k, ok := model.ParseKind(raw)
		if !ok {
			writeAppError(ctx, apperr.New(apperr.CodeInvalidArgument, "Unknown tab "+strconv.Quote(raw)))
			return
		}
		tab = k
	}
	status := facet(args.Peek("status"))
	if !validStatus[status] {
		writeAppError(ctx, apperr.New(apperr.CodeInvalidArgument, "Unknown status filter "+strconv.Quote(status)))
		return
	}
	payment := facet(args.Peek("payment"))
	if !validPayment[payment] {
		writeAppError(ctx, apperr.New(apperr.CodeInvalidArgument, "Unknown payment filter "+strconv.Quote(payment)))
		return
	}
	more := 0
	if raw := string(args.Peek("more")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAppError(ctx, apperr.New(apperr.CodeInvalidArgument, "more must be a non-negative integer"))
			return
		}
		more = min(n, maxLoadMore)
	}

	reqCtx, cancelReq := context.WithTimeout(ctx, h.timeout)
	defer cancelReq()

	session := tracker.NewSession(residentID, h.fetcher, nil, h.paging, h.logger)
	if err := session.Refresh(reqCtx); err != nil {
		log.Warn("list failed", zap.String("resident_id", residentID), zap.Error(err))
		writeAppError(ctx, err)
		return
	}
	session.SetTab(tab)
	session.SetStatusFilter(status)
	session.SetPaymentFilter(payment)
	session.SetSearch(string(args.Peek("q")))
	for i := 0; i < more; i++ {
		if !session.LoadMore() {
			break
		}
	}

	view, err := session.View()
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, model.ListResponse{
		ResidentID: session.ResidentID(),
		Tab:        view.State.Tab,
		Status:     view.State.Status,
		Payment:    view.State.Payment,
		Search:     view.State.Search,
		PageSize:   view.State.PageSize,
		Counts:     view.Counts,
		Total:      len(view.Result.Filtered),
		HasMore:    view.Result.HasMore,
		Items:      session.Rows(view),
	})
}

func (h *Handler) cancelRequest(ctx *fasthttp.RequestCtx, log *zap.Logger, residentID, rawKind, id string) {
	kind, ok := model.ParseKind(rawKind)
	if !ok {
		writeAppError(ctx, apperr.New(apperr.CodeInvalidArgument, "Unknown request kind "+strconv.Quote(rawKind)))
		return
	}
	confirmed := ctx.QueryArgs().GetBool("confirm")

	reqCtx, cancelReq := context.WithTimeout(ctx, h.timeout)
	defer cancelReq()

	canceller, release := h.acquireCanceller(residentID)
	defer release()

	session := tracker.NewSession(residentID, h.fetcher, canceller, h.paging, h.logger)
	if err := session.Refresh(reqCtx); err != nil {
		writeAppError(ctx, err)
		return
	}
	out, err := session.Cancel(reqCtx, kind, id, confirmed)
	if err != nil {
		log.Warn("cancel rejected",
			zap.String("resident_id", residentID),
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err))
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, model.CancelResponse{
		Kind:         out.Kind,
		ID:           out.ID,
		State:        string(out.State),
		Notification: out.Notification,
	})
}

// acquireCanceller returns the resident's shared canceller and a release
// func. The entry is dropped when the last holder releases it.
func (h *Handler) acquireCanceller(residentID string) (*cancel.Canceller, func()) {
	key := strings.TrimSpace(residentID)

	h.mu.Lock()
	ref, ok := h.cancellers[key]
	if !ok {
		ref = &cancellerRef{canceller: cancel.New(h.dispatcher, nil, h.logger)}
		h.cancellers[key] = ref
	}
	ref.refs++
	h.mu.Unlock()

	var once sync.Once
	return ref.canceller, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			ref.refs--
			if ref.refs == 0 {
				delete(h.cancellers, key)
			}
		})
	}
}

func (h *Handler) retainedCancellers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cancellers)
}

func facet(raw []byte) string {
	v := strings.ToLower(strings.TrimSpace(string(raw)))
	if v == "" {
		return model.FilterAll
	}
	return v
}

func requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	writeError(ctx, fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	return false
}

func writeAppError(ctx *fasthttp.RequestCtx, err error) {
	code := apperr.CodeOf(err)
	writeError(ctx, code.HTTPStatus(), string(code), apperr.MessageOf(err))
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string) {
	writeJSON(ctx, status, model.ErrorResponse{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"status":500,"code":"INTERNAL","message":"encode response"}`, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
