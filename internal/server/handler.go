package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/STTM-NSU/options-tracker/internal/store"
	"github.com/STTM-NSU/options-tracker/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type StateReader interface {
	Snapshot() store.State
	Positions() []model.EnrichedPosition
	Quotes() model.Quotes
}

// Trigger starts pipeline runs. Both calls return before the run finishes.
type Trigger interface {
	Sync(ctx context.Context)
	Refresh(ctx context.Context)
}

type Handler struct {
	state   StateReader
	trigger Trigger
	logger  logger.Logger
}

func NewHandler(state StateReader, trigger Trigger, logger logger.Logger) *Handler {
	return &Handler{
		state:   state,
		trigger: trigger,
		logger:  logger,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/state", h.HandleGetState)
	r.Get("/positions", h.HandleGetPositions)
	r.Get("/quotes", h.HandleGetQuotes)
	r.Get("/account", h.HandleGetAccount)
	r.Get("/orders", h.HandleGetOrders)

	r.Post("/sync", h.HandleSync)
	r.Post("/refresh", h.HandleRefresh)

	return r
}

func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.state.Positions())
}

func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.state.Quotes())
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accounts := h.state.Snapshot().Accounts
	if accounts == nil {
		accounts = []model.Account{}
	}
	h.sendJSON(w, http.StatusOK, accounts)
}

func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.state.Snapshot().Orders
	if orders == nil {
		orders = []model.Order{}
	}
	h.sendJSON(w, http.StatusOK, orders)
}

type triggerResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	h.trigger.Sync(r.Context())
	h.sendJSON(w, http.StatusAccepted, triggerResponse{Status: "sync started"})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.trigger.Refresh(r.Context())
	h.sendJSON(w, http.StatusAccepted, triggerResponse{Status: "refresh started"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, v any) {
	var body bytes.Buffer
	if err := tools.EncodeJSON(&body, v); err != nil {
		h.logger.Errorf("%s: can't encode response", err)
		body.Reset()
		_ = tools.EncodeJSON(&body, errorResponse{Error: "can't encode response"})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := body.WriteTo(w); err != nil {
		h.logger.Warnf("%s: can't write response", err)
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debugf("%s %s -> %d in %s [%s]",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}
