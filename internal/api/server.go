// Package api exposes the map-diff pipeline over HTTP: one upload-and-compare
// endpoint plus read-only views of the run registry.
package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/mapdiff/internal/cloud"
	"github.com/banshee-data/mapdiff/internal/convert"
	"github.com/banshee-data/mapdiff/internal/diff"
	"github.com/banshee-data/mapdiff/internal/httputil"
	"github.com/banshee-data/mapdiff/internal/ingest"
	"github.com/banshee-data/mapdiff/internal/runstore"
	"github.com/banshee-data/mapdiff/internal/security"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxUploadBytes bounds a single compare request (two maps plus form
// overhead).
const maxUploadBytes = 512 << 20

// Server handles the compare API. Converter may be nil, in which case
// artifact URLs point at the raw LAS files instead of octree tilesets.
type Server struct {
	store        *runstore.DB
	converter    convert.Converter
	artifactsDir string
	epsilon      float64
}

// NewServer builds an API server writing run namespaces under artifactsDir.
func NewServer(store *runstore.DB, converter convert.Converter, artifactsDir string, epsilon float64) *Server {
	return &Server{
		store:        store,
		converter:    converter,
		artifactsDir: artifactsDir,
		epsilon:      epsilon,
	}
}

// ServeMux returns the API routes, intended to be mounted under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/compare", s.handleCompare)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/chart", s.handleRunsChart)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// compareResponse mirrors the shape the web viewer consumes: one URL per
// artifact (empty string for subsets with no points) plus extra-point
// headline numbers.
type compareResponse struct {
	BaseDir      string `json:"base_dir"`
	GenDir       string `json:"gen_dir"`
	ExtraBaseDir string `json:"extra_base_dir"`
	ExtraGenDir  string `json:"extra_gen_dir"`
	ExtraGenNum  int    `json:"extra_gen_num"`
	ExtraPercent string `json:"extra_percent"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart request: %v", err))
		return
	}

	base, err := s.loadUpload(r, "base_pcd")
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("base_pcd: %v", err))
		return
	}
	gen, err := s.loadUpload(r, "gen_pcd")
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("gen_pcd: %v", err))
		return
	}

	epsilon := s.epsilon
	if v := r.FormValue("epsilon"); v != "" {
		epsilon, err = strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid epsilon %q", v))
			return
		}
	}

	// Every run writes into its own namespace so concurrent requests never
	// alias destinations; retention reclaims old namespaces out-of-band.
	runID := uuid.New().String()
	runDir := filepath.Join(s.artifactsDir, runID)
	if err := security.ValidateWithinRoot(runDir, s.artifactsDir); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("run namespace: %v", err))
		return
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("create run namespace: %v", err))
		return
	}

	pipeline := &diff.Pipeline{
		OutDir:  runDir,
		Epsilon: epsilon,
		Colors:  diff.DefaultColors(),
	}
	sum, err := pipeline.Run(base, gen)
	if err != nil {
		if errors.Is(err, diff.ErrInvalidTolerance) || errors.Is(err, cloud.ErrBadPoint) {
			httputil.BadRequest(w, err.Error())
		} else {
			httputil.InternalServerError(w, err.Error())
		}
		return
	}

	resp := compareResponse{
		ExtraGenNum:  sum.ExtraGenCount,
		ExtraPercent: fmt.Sprintf("%.2f%%", sum.ExtraGenPercent),
	}
	artifacts := []struct {
		name string
		path string
		n    int
		dst  *string
	}{
		{diff.NameBase, sum.Base.Path, sum.Base.Count, &resp.BaseDir},
		{diff.NameGen, sum.Gen.Path, sum.Gen.Count, &resp.GenDir},
		{diff.NameExtraBase, sum.ExtraBase.Path, sum.ExtraBase.Count, &resp.ExtraBaseDir},
		{diff.NameExtraGen, sum.ExtraGen.Path, sum.ExtraGen.Count, &resp.ExtraGenDir},
	}
	for _, a := range artifacts {
		url, err := s.publish(r, runID, a.name, a.path, a.n)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("convert %s: %v", a.name, err))
			return
		}
		*a.dst = url
	}

	if err := s.store.InsertRun(&runstore.Run{
		RunID:           runID,
		Epsilon:         epsilon,
		BaseCount:       len(base),
		GenCount:        len(gen),
		ExtraBaseCount:  len(sum.Result.ExtraInBase),
		ExtraGenCount:   sum.ExtraGenCount,
		ExtraGenPercent: sum.ExtraGenPercent,
		ArtifactDir:     runDir,
	}); err != nil {
		// The artifacts exist even if bookkeeping failed; log and serve.
		log.Printf("record run %s: %v", runID, err)
	}

	httputil.WriteJSONOK(w, resp)
}

// publish converts a non-empty artifact into its browsable form and returns
// its URL under /static. Empty subsets get an empty URL; the viewer skips
// them.
func (s *Server) publish(r *http.Request, runID, name, lasPath string, count int) (string, error) {
	if count == 0 {
		return "", nil
	}
	if s.converter == nil {
		return "/static/" + runID + "/" + filepath.Base(lasPath), nil
	}
	outDir := filepath.Join(s.artifactsDir, runID, name)
	if _, err := s.converter.Convert(r.Context(), lasPath, outDir); err != nil {
		return "", err
	}
	return "/static/" + runID + "/" + name, nil
}

// loadUpload reads one uploaded static map form file.
func (s *Server) loadUpload(r *http.Request, field string) (cloud.PointSet, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing upload: %w", err)
	}
	defer file.Close()
	return ingest.Load(io.Reader(file))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []runstore.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}
