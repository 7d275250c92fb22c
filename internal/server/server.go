// Package server exposes a catalog of derived schemas over HTTP.
//
//	GET  /healthz
//	GET  /schemas
//	GET  /schemas/{model}
//	POST /schemas/{model}/validate[?by_alias=true&exclude_none=true]
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/config"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/logger"
	"github.com/koustreak/rowmodel/internal/validation"
)

// MaxBodyBytes caps a validation request body.
const MaxBodyBytes = 1 << 20

type Server struct {
	catalog *catalog.Catalog
	log     *logger.Logger
	router  chi.Router
}

func New(c *catalog.Catalog, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{catalog: c, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{model}", s.handleSchema)
		r.Post("/{model}/validate", s.handleValidate)
	})
	return r
}

// Handler returns the router, for mounting or tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("listening", map[string]any{"addr": cfg.Addr, "models": s.catalog.Len()})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "serving on "+cfg.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "shutting down", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(s.log.WithContext(r.Context())))

		s.log.HTTPEvent().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Models: s.catalog.Len()})
}

type modelSummary struct {
	Name   string   `json:"name"`
	Table  string   `json:"table"`
	Fields []string `json:"fields"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	out := make([]modelSummary, 0, s.catalog.Len())
	_ = s.catalog.Each(func(e catalog.Entry) error {
		fields := e.Schema.Fields()
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		out = append(out, modelSummary{Name: e.Schema.Name(), Table: e.Model.TableName(), Fields: names})
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.catalog.Get(chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := schema.JSONSchema()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	schema, err := s.catalog.Get(chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "reading request body", err))
		return
	}

	inst, err := schema.ValidateJSON(body)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, verr)
			return
		}
		writeError(w, err)
		return
	}

	var opts []validation.DumpOption
	if flag(r, "by_alias") {
		opts = append(opts, validation.ByAlias())
	}
	if flag(r, "exclude_none") {
		opts = append(opts, validation.ExcludeNone())
	}

	doc, err := inst.DumpJSON(opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func flag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, statusOf(kind), errorResponse{Error: err.Error(), Kind: kind.String()})
}

func statusOf(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
