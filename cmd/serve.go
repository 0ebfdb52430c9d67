package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/ingest"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/store"
)

// maxUploadBytes caps a single uploaded PDF.
const maxUploadBytes = 32 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP parsing API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		env, err := initPipeline(ctx, "serve", envOptions{Storage: true, Store: true})
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// server serves the parsing API over a pipelineEnv.
type server struct {
	env *pipelineEnv
}

// buildRouter wires the API routes. env.Store may be nil, in which case the
// bill routes answer 503.
func buildRouter(env *pipelineEnv, origins []string) http.Handler {
	s := &server{env: env}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if env.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(env.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", s.listProviders)
		r.Post("/parse", s.parse)
		r.Get("/bills", s.listBills)
		r.Get("/bills/{id}", s.getBill)
	})
	return r
}

func writeResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeResponse(w, status, map[string]string{"error": msg})
}

func (s *server) listProviders(w http.ResponseWriter, _ *http.Request) {
	reg := s.env.Pipeline.Registry
	out := make([]providerSummary, 0, len(reg.Names()))
	for _, p := range reg.All() {
		out = append(out, providerSummary{
			Name:        p.Slug,
			DisplayName: p.DisplayName,
			Service:     string(p.Service),
			Required:    p.Required,
			BillFields:  p.FieldNames(model.DocumentBill),
		})
	}
	writeResponse(w, http.StatusOK, out)
}

// parseRequest is the JSON body for parsing already-extracted text.
type parseRequest struct {
	Provider      string             `json:"provider"`
	Text          string             `json:"text"`
	SourcePath    string             `json:"source_path"`
	ReferenceYear int                `json:"reference_year"`
	Account       *model.AccountInfo `json:"account"`
	Save          bool               `json:"save"`
}

// parse accepts either a JSON parseRequest or a multipart upload with a
// "file" part and "provider" field.
func (s *server) parse(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		s.parseText(w, r)
	case "multipart/form-data":
		s.parseUpload(w, r)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json or multipart/form-data")
	}
}

func (s *server) parseText(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if _, err := s.env.Pipeline.Registry.Get(req.Provider); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.env.Pipeline.ParseText(r.Context(), req.Provider, req.Text, req.SourcePath, ingest.Options{
		Account:       req.Account,
		ReferenceYear: req.ReferenceYear,
		Save:          req.Save,
	})
	if err != nil {
		zap.L().Error("parse text failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "parse failed")
		return
	}
	writeResponse(w, http.StatusOK, res)
}

func (s *server) parseUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	providerName := r.FormValue("provider")
	if providerName == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if _, err := s.env.Pipeline.Registry.Get(providerName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer part.Close() //nolint:errcheck

	dir, err := os.MkdirTemp("", "billscan-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stage upload")
		return
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, filepath.Base(header.Filename))
	if err := stageUpload(part, path); err != nil {
		zap.L().Error("stage upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stage upload")
		return
	}

	year, _ := strconv.Atoi(r.FormValue("reference_year"))
	res, err := s.env.Pipeline.ParseFile(r.Context(), providerName, path, ingest.Options{
		Account:       accountInfo(r.FormValue("account"), r.FormValue("address")),
		ReferenceYear: year,
		File:          r.FormValue("file_pdf") == "true",
		Save:          r.FormValue("save") == "true",
		SourcePath:    header.Filename,
	})
	switch {
	case errors.Is(err, ingest.ErrNotPDF):
		writeError(w, http.StatusUnprocessableEntity, "upload is not a PDF")
		return
	case err != nil:
		zap.L().Error("parse upload failed", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "parse failed")
		return
	}
	writeResponse(w, http.StatusOK, res)
}

func stageUpload(src io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create staged upload")
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "copy staged upload")
	}
	return eris.Wrap(f.Close(), "close staged upload")
}

func (s *server) listBills(w http.ResponseWriter, r *http.Request) {
	if s.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RecordFilter{
		Provider:      q.Get("provider"),
		AccountNumber: q.Get("account_number"),
	}
	if v := q.Get("document_type"); v != "" {
		dt, ok := model.ParseDocumentType(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown document_type")
			return
		}
		filter.DocumentType = dt
	}
	if v := q.Get("requires_attention"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "requires_attention must be true or false")
			return
		}
		filter.RequiresAttention = &b
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	records, err := s.env.Store.ListRecords(r.Context(), filter)
	if err != nil {
		zap.L().Error("list bills failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if records == nil {
		records = []store.StoredRecord{}
	}
	writeResponse(w, http.StatusOK, records)
}

func (s *server) getBill(w http.ResponseWriter, r *http.Request) {
	if s.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	rec, err := s.env.Store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "bill not found")
	case err != nil:
		zap.L().Error("get bill failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get failed")
	default:
		writeResponse(w, http.StatusOK, rec)
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
