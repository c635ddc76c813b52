package transport

import (
	"net/http"

	"github.com/you-humble/sttqueue/core/domain"
)

func (h *handler) transcripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	tree, err := h.usecase.Transcripts(r.Context())
	if err != nil {
		writeUsecaseError(w, requestLogger(r, "transcripts"), "Transcripts", err, "cannot list transcripts")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *handler) transcriptContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	q := r.URL.Query()
	date, filename := q.Get("date"), q.Get("filename")
	if date == "" || filename == "" {
		writeError(w, http.StatusBadRequest, "date and filename query parameters are required")
		return
	}

	content, err := h.usecase.TranscriptContent(r.Context(), date, filename)
	if err != nil {
		writeUsecaseError(w, requestLogger(r, "transcriptContent"), "TranscriptContent", err, "cannot read transcript")
		return
	}
	writeJSON(w, http.StatusOK, domain.ContentResponse{Content: content})
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	names, err := h.usecase.Logs(r.Context())
	if err != nil {
		writeUsecaseError(w, requestLogger(r, "logs"), "Logs", err, "cannot list logs")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *handler) logContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}

	content, err := h.usecase.LogContent(r.Context(), filename)
	if err != nil {
		writeUsecaseError(w, requestLogger(r, "logContent"), "LogContent", err, "cannot read log")
		return
	}
	writeJSON(w, http.StatusOK, domain.ContentResponse{Content: content})
}

func (h *handler) media(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	tree, err := h.usecase.Media(r.Context())
	if err != nil {
		writeUsecaseError(w, requestLogger(r, "media"), "Media", err, "cannot list media")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}
