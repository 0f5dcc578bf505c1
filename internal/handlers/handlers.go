package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/railcrack-api/internal/alert"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
	"github.com/Brownie44l1/railcrack-api/internal/storage"
)

// Response messages.
const (
	MsgRunning          = "Railway Track Crack Detection API"
	MsgInvalidFileType  = "Invalid file type. Please upload an image."
	MsgNoFile           = "No file provided. Use 'file' as the form field name."
	MsgModelUnavailable = "Model not loaded correctly."
	MsgInvalidImage     = "Invalid image. Supported formats: JPEG, PNG, GIF, BMP."
	MsgProcessingError  = "Error processing image: "
	MsgHistoryDisabled  = "Prediction history is disabled."
)

// DefaultMaxUploadBytes bounds an upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// ModelStatus is what the health endpoint reports about the model.
type ModelStatus interface {
	Loaded() bool
	Variant() string
}

// ErrorResponse is the body of every failed request. Classification
// failures are reported with status 200 so that clients which only read
// successful bodies still see the message; transport failures (malformed
// form, oversized upload) keep their 4xx status.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Variant     string `json:"variant,omitempty"`
}

// Handler serves the classification endpoints. The classifier and model
// status are fixed at construction; history and alerts are optional.
type Handler struct {
	classifier *inference.Classifier
	model      ModelStatus
	history    storage.HistoryStore
	alerts     *alert.Notifier
	maxUpload  int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithHistory records every served prediction in store.
func WithHistory(store storage.HistoryStore) Option {
	return func(h *Handler) { h.history = store }
}

// WithAlerts publishes qualifying crack results through n.
func WithAlerts(n *alert.Notifier) Option {
	return func(h *Handler) { h.alerts = n }
}

// WithMaxUploadBytes bounds the accepted upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

func NewHandler(classifier *inference.Classifier, status ModelStatus, opts ...Option) *Handler {
	h := &Handler{
		classifier: classifier,
		model:      status,
		maxUpload:  DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": MsgRunning,
		"status":  "running",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.model.Loaded(),
		Variant:     h.model.Variant(),
	})
}

// Upload classifies the image sent in the multipart field "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form.", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgNoFile, nil)
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large.", nil)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		logger.Info().Str("filename", header.Filename).Str("content_type", contentType).Msg("rejected non-image upload")
		writeError(w, http.StatusOK, MsgInvalidFileType, nil)
		return
	}

	// Fail fast before reading the body when there is no model.
	if !h.classifier.Ready() {
		writeError(w, http.StatusOK, MsgModelUnavailable, nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload.", err)
		return
	}

	logger.Debug().Str("filename", header.Filename).Int("bytes", len(data)).Msg("received file")

	res, err := h.classifier.ClassifyReader(r.Context(), bytes.NewReader(data))
	if err != nil {
		h.writeClassifyError(w, r, err)
		return
	}

	logger.Info().
		Str("filename", header.Filename).
		Bool("has_crack", res.HasCrack).
		Float64("confidence", res.Confidence).
		Str("level", res.ConfidenceLevel).
		Msg("image classified")

	id := uuid.NewString()
	h.record(r, id, header.Filename, data, res)
	h.alerts.Notify(res, alert.NewEvent(id, header.Filename, h.model.Variant(), res))

	writeJSON(w, http.StatusOK, res)
}

// History lists the most recent predictions, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, MsgHistoryDisabled, nil)
		return
	}

	limit := storage.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer.", nil)
			return
		}
		limit = n
	}

	items, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to read history")
		writeError(w, http.StatusInternalServerError, "Failed to read history.", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (h *Handler) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	switch inference.KindOf(err) {
	case inference.KindModelUnavailable:
		writeError(w, http.StatusOK, MsgModelUnavailable, nil)
	case inference.KindInvalidImage:
		logger.Info().Err(err).Msg("invalid image")
		writeError(w, http.StatusOK, MsgInvalidImage, err)
	default:
		logger.Error().Err(err).Msg("inference failed")
		writeError(w, http.StatusOK, MsgProcessingError+rootCause(err).Error(), err)
	}
}

// record appends to history. Failures never affect the response.
func (h *Handler) record(r *http.Request, id, filename string, data []byte, res *inference.Result) {
	if h.history == nil {
		return
	}

	sum := sha256.Sum256(data)
	p := &storage.Prediction{
		ID:              id,
		ImageSHA256:     hex.EncodeToString(sum[:]),
		Filename:        filename,
		Variant:         h.model.Variant(),
		HasCrack:        res.HasCrack,
		Class:           res.Class,
		Confidence:      res.Confidence,
		ConfidenceLevel: res.ConfidenceLevel,
		Probability:     res.Probability,
	}
	if err := h.history.Record(r.Context(), p); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to record prediction")
	}
}

func rootCause(err error) error {
	var ierr *inference.Error
	if errors.As(err, &ierr) && ierr.Err != nil {
		return ierr.Err
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: true, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
