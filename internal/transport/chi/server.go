// Package chi exposes the HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/domain"
	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
	"github.com/kailas-cloud/imagedex/internal/domain/search/result"
	"github.com/kailas-cloud/imagedex/internal/domain/tag"
	healthuc "github.com/kailas-cloud/imagedex/internal/usecase/health"
)

// DefaultMaxImageBytes caps the uploaded image size.
const DefaultMaxImageBytes = 10 << 20

// errorCode identifies the failure class in error responses.
type errorCode string

const (
	codeInvalidRequest         errorCode = "invalid_request"
	codeEmptyInput             errorCode = "empty_input"
	codeEmptyQuery             errorCode = "empty_query"
	codeDocumentNotFound       errorCode = "document_not_found"
	codeClassifierUnavailable  errorCode = "classifier_unavailable"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeStoreUnavailable       errorCode = "store_unavailable"
	codeCollaboratorTimeout    errorCode = "collaborator_timeout"
	codeInternalError          errorCode = "internal_error"
)

// IngestService is the recognize-and-store contract consumed by handlers.
type IngestService interface {
	RecognizeAndStore(ctx context.Context, fileName string, image []byte) (domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// SearchService is the query contract consumed by handlers.
type SearchService interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]result.Result, error)
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	ingest          IngestService
	search          SearchService
	health          HealthService
	maxImageBytes   int64
	defaultMinScore float64
	logger          *zap.Logger
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ingest IngestService, search SearchService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		ingest:        ingest,
		search:        search,
		health:        health,
		maxImageBytes: DefaultMaxImageBytes,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrEmptyInput, http.StatusUnprocessableEntity, codeEmptyInput),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeEmptyQuery),
		sentinelHandler(domain.ErrCollaboratorTimeout, http.StatusGatewayTimeout, codeCollaboratorTimeout),
		sentinelHandler(domain.ErrClassifierUnavailable, http.StatusBadGateway, codeClassifierUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusBadGateway, codeStoreUnavailable),
	}
	return s
}

// WithLimits overrides upload size and score defaults.
func (s *Server) WithLimits(maxImageBytes int64, defaultMinScore float64) *Server {
	if maxImageBytes > 0 {
		s.maxImageBytes = maxImageBytes
	}
	if defaultMinScore > 0 {
		s.defaultMinScore = defaultMinScore
	}
	return s
}

// Register mounts all routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/recognize-image", s.RecognizeImage)
	r.Get("/search-images", s.SearchImages)
	r.Get("/images/{id}", s.GetImage)
	r.Delete("/images/{id}", s.DeleteImage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type documentResponse struct {
	FileName     string    `json:"file_name"`
	Tags         tag.Set   `json:"tags"`
	Dimensions   int       `json:"dimensions"`
	LastModified time.Time `json:"last_modified"`
}

type searchResultItem struct {
	FileName string  `json:"file_name"`
	Score    float64 `json:"score"`
	Tags     tag.Set `json:"tags"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// RecognizeImage handles POST /recognize-image. Expects a multipart form with
// an "image" file part; the part's file name becomes the document ID.
func (s *Server) RecognizeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "image exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, `multipart "image" field is required`)
		return
	}
	defer func() { _ = file.Close() }()

	fileName := filepath.Base(header.Filename)
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "image file name is required")
		return
	}

	image, err := readImage(file)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "image exceeds size limit")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "image file is empty")
		return
	}

	doc, err := s.ingest.RecognizeAndStore(r.Context(), fileName, image)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// SearchImages handles GET /search-images.
func (s *Server) SearchImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "top_k must be a positive integer")
			return
		}
		topK = v
	}

	minScore := s.defaultMinScore
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "min_score must be a non-negative number")
			return
		}
		minScore = v
	}

	results, err := s.search.Search(r.Context(), query, topK, minScore)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultItem{
			FileName: results[i].ID(),
			Score:    results[i].Score(),
			Tags:     results[i].Tags(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// GetImage handles GET /images/{id}.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.ingest.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteImage handles DELETE /images/{id}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    report.Status,
		"checks":    report.Checks,
		"documents": report.Documents,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func readImage(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func documentToResponse(doc *domdoc.Document) documentResponse {
	tags := doc.Tags()
	if tags == nil {
		tags = tag.Set{}
	}
	return documentResponse{
		FileName:     doc.ID(),
		Tags:         tags,
		Dimensions:   len(doc.Vector()),
		LastModified: doc.LastModified(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrEmptyInput,
		domain.ErrEmptyQuery,
		domain.ErrCollaboratorTimeout,
		domain.ErrClassifierUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
