// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/tasting/internal/app"
	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/internal/domain/ranking"
	"github.com/okian/tasting/pkg/logger"
)

const (
	// ParticipantHeader names the participant acting on the request.
	ParticipantHeader = "X-Participant"
	// IdempotencyHeader carries a client chosen submission id.
	IdempotencyHeader = "Idempotency-Key"

	maxRequestBody      = 1 << 20
	defaultMaxBoardSize = 100
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Pinger
	StatsProvider

	CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error)
	UpdateItem(ctx context.Context, itemID string, in model.ItemInput) (model.Item, error)
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error)
	DeleteItem(ctx context.Context, itemID string) error

	SubmitReport(ctx context.Context, session model.Session, itemID string, in model.ReportInput, submissionID string) (service.ReportResult, error)
	ReplaceReport(ctx context.Context, session model.Session, itemID, oldKey string, in model.ReportInput) (service.ReportResult, error)
	DeleteReport(ctx context.Context, itemID, key string) (service.ReportResult, error)
	ListItemReports(ctx context.Context, itemID string) ([]model.Report, error)
	ListParticipantReports(ctx context.Context, session model.Session) ([]model.Report, error)

	ItemLeaderboard(ctx context.Context, limit int) ([]ranking.ItemEntry, error)
	ParticipantLeaderboard(ctx context.Context, limit int) ([]ranking.ParticipantEntry, error)
	Community(ctx context.Context, limit int) (ranking.Community, error)

	InferCategory(ctx context.Context, text string) service.LabelGuess
	Reconcile(ctx context.Context) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	maxLimit int
	logger   logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithMaxLimit caps the limit query parameter of leaderboard routes.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		maxLimit:      defaultMaxBoardSize,
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Register attaches all HTTP routes and middleware to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/readyz", s.healthHandler.HandleReady)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleListItems)
		r.Post("/", s.handleCreateItem)
		r.Route("/{itemID}", func(r chi.Router) {
			r.Get("/", s.handleGetItem)
			r.Put("/", s.handleUpdateItem)
			r.Delete("/", s.handleDeleteItem)
			r.Get("/reports", s.handleListItemReports)
			r.Post("/reports", s.handleSubmitReport)
			r.Put("/reports/{key}", s.handleReplaceReport)
			r.Delete("/reports/{key}", s.handleDeleteReport)
		})
	})
	r.Get("/participants/me/reports", s.handleMyReports)

	r.Get("/leaderboard/items", s.handleItemLeaderboard)
	r.Get("/leaderboard/participants", s.handleParticipantLeaderboard)
	r.Get("/community", s.handleCommunity)

	r.Post("/labels/infer", s.handleInferLabel)
	r.Post("/admin/reconcile", s.handleReconcile)
}

// Handler returns a chi router with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// writeFailure picks the status from the error kind. Server side failures
// are logged with their cause and answered with a generic message.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= statusInternalError {
		logger.Named("http").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON document from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %w", ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}

// sessionFrom reads the participant header. Header values are ASCII on the
// wire, so clients percent-encode other names.
func sessionFrom(r *http.Request) model.Session {
	name := r.Header.Get(ParticipantHeader)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return model.Session{Participant: strings.TrimSpace(name)}
}

// parseLimit reads ?limit. Absent means maxLimit.
func (s *Server) parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.maxLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > s.maxLimit {
		return 0, fmt.Errorf("%w: limit must be at most %d", ErrBadRequest, s.maxLimit)
	}
	return n, nil
}
