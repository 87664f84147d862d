// Package httpapi exposes the grocery inventory operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/inventory"
	"github.com/bububa/smart-shop/receipt"
)

// ServiceName is reported by the info and health endpoints
const ServiceName = "Weekly Grocery Agent API"

// Server wires HTTP endpoints to the inventory service
type Server struct {
	svc            *inventory.Service
	logger         *zap.Logger
	allowedOrigins []string
	maxUploadSize  int64
	version        string
	validate       *validator.Validate
	clock          func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithLogger set server logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithAllowedOrigins set CORS origins, "*" allows any
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMaxUploadSize set the receipt upload limit
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		s.maxUploadSize = n
	}
}

// WithVersion set the version reported by the service
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New returns a Server
func New(svc *inventory.Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		logger:         zap.NewNop(),
		allowedOrigins: []string{"*"},
		maxUploadSize:  receipt.DefaultMaxImageSize,
		version:        "1.0.0",
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middlewares applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/process-inventory", s.processInventory)
	mux.HandleFunc("POST /api/reconcile", s.reconcile)
	mux.HandleFunc("POST /api/generate-shopping-list", s.generateShoppingList)
	mux.HandleFunc("GET /api/generate-shopping-list", s.generateShoppingList)
	mux.HandleFunc("GET /api/get-grocery-list", s.getGroceryList)
	mux.HandleFunc("POST /api/reset-grocery-list", s.resetGroceryList)
	mux.HandleFunc("POST /api/upload-grocery-list", s.uploadGroceryList)
	mux.HandleFunc("GET /api/export-shopping-list", s.exportShoppingList)
	return s.recoverer(s.requestID(s.accessLog(s.cors(mux))))
}

// Serve runs an http.Server on addr until ctx is done, then shuts it down gracefully
func (s *Server) Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	srv.Handler = s.Handler()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version uint64 `json:"version,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	fields := []zap.Field{zap.String("request_id", RequestID(r.Context())), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus maps an error to the HTTP status and the message shown to clients
func errorStatus(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, receipt.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, receipt.ErrInvalidImage):
		return http.StatusBadRequest, "Invalid image file"
	case errors.Is(err, catalog.ErrMalformed):
		return http.StatusBadRequest, "Invalid grocery list format: " + err.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
	case errors.Is(err, receipt.ErrExtraction):
		return http.StatusBadGateway, "Receipt processing failed: " + err.Error()
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusInternalServerError, "Grocery list not available"
	case errors.Is(err, catalog.ErrBusy):
		return http.StatusServiceUnavailable, "Grocery list is busy, try again"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
