package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/errs"
	"github.com/Bahjat/site-audit/internal/platform/middleware"
	"github.com/Bahjat/site-audit/internal/platform/requestid"
)

const (
	defaultInlineTimeout = 330 * time.Second
	healthTimeout        = 2 * time.Second
)

var errURLRequired = errors.New("the \"url\" field is required")

// Transport handles HTTP requests for audits.
type Transport struct {
	service       *Service
	logger        *slog.Logger
	pinger        Pinger
	inlineTimeout time.Duration
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithPinger makes /healthz report the given dependency.
func WithPinger(p Pinger) TransportOption {
	return func(t *Transport) { t.pinger = p }
}

// WithInlineTimeout bounds POST /audits?wait=true.
func WithInlineTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.inlineTimeout = d
		}
	}
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger, opts ...TransportOption) *Transport {
	t := &Transport{service: service, logger: logger, inlineTimeout: defaultInlineTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RegisterRoutes attaches the transport's handlers to the given router.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Post("/audits", t.handleCreate)
	r.Get("/audits/{id}", t.handleGet)
	r.Get("/healthz", t.handleHealth)
}

// NewRouter returns the API handler with request id, logging and panic
// recovery applied to every route.
func NewRouter(t *Transport, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(logger), middleware.Recoverer(logger))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		t.renderError(w, http.StatusNotFound, "No such endpoint.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		t.renderError(w, http.StatusMethodNotAllowed, "Method not allowed for this endpoint.")
	})
	t.RegisterRoutes(r)
	return r
}

type createRequest struct {
	URL string `json:"url"`
}

func (r createRequest) validate() error {
	if r.URL == "" {
		return errURLRequired
	}
	return nil
}

func (t *Transport) handleCreate(w http.ResponseWriter, r *http.Request) {
	const maxRequestBody = 1 << 20 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with a \"url\" field.")
		return
	}

	if err := req.validate(); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		a, err := t.service.Create(r.Context(), req.URL)
		if err != nil {
			t.handleServiceError(w, err)
			return
		}
		w.Header().Set("Location", "/audits/"+a.ID)
		t.renderJSON(w, http.StatusAccepted, a)
		return
	}

	// The inline run survives a client disconnect so the record still ends
	// in a terminal state.
	ctx, cancel := context.WithTimeout(requestid.Detach(r.Context()), t.inlineTimeout)
	defer cancel()

	a, err := t.service.RunNow(ctx, req.URL)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, a)
}

func (t *Transport) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := t.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, a)
}

func (t *Transport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if t.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := t.pinger.Ping(ctx); err != nil {
			t.logger.Warn("health check failed", "error", err)
			t.renderJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusFor maps an error kind to the HTTP status returned for it.
func statusFor(k errs.Kind) int {
	switch k {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	case errs.Unreachable:
		return http.StatusBadGateway
	case errs.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		t.renderError(w, statusFor(appErr.Kind), appErr.Message)
		return
	}

	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
