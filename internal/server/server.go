// Package server exposes the work-order pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/pipeline"
)

const (
	msgCreated       = "task successfully added to board"
	msgDecodeFailed  = "failed to extract data from PDF"
	msgCreateFailed  = "failed to add task to board"
	msgMissingFile   = "missing file"
	maxUploadBytes   = 32 << 20
	requestTimeout   = 60 * time.Second
	shutdownDeadline = 10 * time.Second
)

// Processor is the part of pipeline.Processor the routes use.
type Processor interface {
	Process(ctx context.Context, doc pipeline.Document) (pipeline.Outcome, error)
	ProcessEmail(ctx context.Context, name string, raw []byte) ([]pipeline.Outcome, error)
}

type Server struct {
	processor Processor
	cfg       config.Config
	log       zerolog.Logger
}

func New(processor Processor, cfg config.Config, log zerolog.Logger) *Server {
	return &Server{processor: processor, cfg: cfg, log: log.With().Str("component", "http").Logger()}
}

type itemResponse struct {
	ItemID  string          `json:"itemId"`
	TraceID string          `json:"traceId"`
	Part    string          `json:"part,omitempty"`
	Record  internal.Record `json:"record"`
}

type taskResponse struct {
	Message string           `json:"message"`
	ItemID  string           `json:"itemId,omitempty"`
	TraceID string           `json:"traceId,omitempty"`
	Record  *internal.Record `json:"record,omitempty"`
	Items   []itemResponse   `json:"items,omitempty"`
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "woboard"})
	})
	r.Get("/run-task", s.runTask)
	r.Post("/documents", s.uploadDocument)
	r.Post("/extract", s.extract)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) runTask(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	if s.cfg.PDFPath == "" {
		log.Error().Msg("PDF_PATH is not configured")
		writeMessage(w, http.StatusInternalServerError, msgDecodeFailed)
		return
	}

	doc, err := pipeline.DecodeFile(s.cfg.PDFPath, internal.KindPDF)
	if err != nil {
		log.Error().Err(err).Str("path", s.cfg.PDFPath).Msg("read pdf")
		writeMessage(w, http.StatusInternalServerError, msgDecodeFailed)
		return
	}
	s.respondOutcome(w, r, doc)
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("read upload")
		writeMessage(w, http.StatusBadRequest, msgMissingFile)
		return
	}

	kind := pipeline.KindFromName(header.Filename)
	if kind != internal.KindEmail {
		s.respondOutcome(w, r, pipeline.Document{Name: header.Filename, Kind: kind, Blob: blob})
		return
	}

	outcomes, err := s.processor.ProcessEmail(r.Context(), header.Filename, blob)
	items := make([]itemResponse, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ItemID != "" {
			items = append(items, itemResponse{ItemID: o.ItemID, TraceID: o.TraceID, Part: o.Part, Record: o.Record})
		}
	}
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Int("created", len(items)).Msg("email upload failed")
		writeJSON(w, http.StatusInternalServerError, taskResponse{Message: failureMessage(err), Items: items})
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Message: msgCreated, Items: items})
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "unreadable body")
		return
	}
	rec, err := pipeline.ExtractFromInput(internal.KindText, string(body), s.cfg.ProjectName)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("extract")
		writeMessage(w, http.StatusInternalServerError, msgDecodeFailed)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) respondOutcome(w http.ResponseWriter, r *http.Request, doc pipeline.Document) {
	out, err := s.processor.Process(r.Context(), doc)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("trace_id", out.TraceID).Str("document", doc.Name).Msg("process document")
		writeJSON(w, http.StatusInternalServerError, taskResponse{Message: failureMessage(err), TraceID: out.TraceID})
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Message: msgCreated, ItemID: out.ItemID, TraceID: out.TraceID, Record: &out.Record})
}

func failureMessage(err error) string {
	if errors.Is(err, pipeline.ErrDecode) {
		return msgDecodeFailed
	}
	return msgCreateFailed
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, taskResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request and stores a request-scoped logger in the
// context for handlers.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
