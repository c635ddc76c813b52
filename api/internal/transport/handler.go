package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/you-humble/sttqueue/core/domain"
	"github.com/you-humble/sttqueue/core/filestore"
)

type Usecase interface {
	SubmitUpload(ctx context.Context, file io.Reader, filename string) (domain.SubmitResponse, error)
	SubmitURL(ctx context.Context, rawURL string) (domain.SubmitResponse, error)
	Status(ctx context.Context, jobID string) (domain.StatusResponse, error)

	Transcripts(ctx context.Context) (map[string][]string, error)
	TranscriptContent(ctx context.Context, date, filename string) (string, error)
	Logs(ctx context.Context) ([]string, error)
	LogContent(ctx context.Context, filename string) (string, error)
	Media(ctx context.Context) (map[string][]string, error)
	OpenMedia(ctx context.Context, date, filename string) (filestore.Object, error)
}

type handler struct {
	maxUploadBytes int64
	usecase        Usecase
}

func NewHandler(maxUploadBytesMb int64, uc Usecase) *handler {
	return &handler{
		maxUploadBytes: maxUploadBytesMb << 20,
		usecase:        uc,
	}
}

func (h *handler) submitUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "submitUpload")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		logger.Warn("MultipartReader", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to parse multipart form")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			logger.Warn("missing file field")
			writeError(w, http.StatusBadRequest, "field `file` is required")
			return
		}
		if err != nil {
			logger.Warn("NextPart", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "unable to parse multipart form")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		filename := part.FileName()
		logger = logger.With(slog.String("file_name", filename))

		resp, err := h.usecase.SubmitUpload(r.Context(), part, filename)
		_ = part.Close()
		if err != nil {
			writeUsecaseError(w, logger, "SubmitUpload", err, "cannot create transcription job")
			return
		}

		writeJSON(w, http.StatusOK, resp)
		return
	}
}

type submitURLRequest struct {
	URL string `json:"url"`
}

func (h *handler) submitURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "submitURL")

	var req submitURLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	logger = logger.With(slog.String("url", req.URL))

	resp, err := h.usecase.SubmitURL(r.Context(), req.URL)
	if err != nil {
		writeUsecaseError(w, logger, "SubmitURL", err, "cannot create transcription job")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "status")

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	resp, err := h.usecase.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, resp)
			return
		}
		writeUsecaseError(w, logger, "Status", err, "cannot load job status")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeUsecaseError maps usecase errors onto HTTP statuses. Internal errors
// are logged and answered with fallback.
func writeUsecaseError(w http.ResponseWriter, logger *slog.Logger, op string, err error, fallback string) {
	var (
		upErr  *domain.UpstreamError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		logger.Warn(op, slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
	case errors.As(err, &upErr):
		logger.Warn(op, slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, upErr.Error())
	default:
		logger.Error(op, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func requestLogger(r *http.Request, name string) *slog.Logger {
	return slog.With(
		slog.String("request_id", RequestID(r.Context())),
		slog.String("handler", name),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	resp := domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
