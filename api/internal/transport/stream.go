package transport

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/you-humble/sttqueue/core/byterange"
)

// mediaStream serves a stored media file. Without a Range header the whole
// file goes through http.ServeContent, which also answers conditional
// requests; a single "bytes=start-end" range is answered with 206.
func (h *handler) mediaStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := requestLogger(r, "mediaStream")

	q := r.URL.Query()
	date, filename := q.Get("date"), q.Get("filename")
	if date == "" || filename == "" {
		writeError(w, http.StatusBadRequest, "date and filename query parameters are required")
		return
	}

	obj, err := h.usecase.OpenMedia(r.Context(), date, filename)
	if err != nil {
		writeUsecaseError(w, logger, "OpenMedia", err, "cannot open media file")
		return
	}
	defer obj.Content.Close()

	w.Header().Set("Content-Type", mediaType(filename))
	w.Header().Set("Accept-Ranges", "bytes")

	header := r.Header.Get("Range")
	if header == "" {
		http.ServeContent(w, r, filename, obj.ModTime, obj.Content)
		return
	}

	rng, err := byterange.Parse(header, obj.Size)
	if err != nil {
		if errors.Is(err, byterange.ErrUnsatisfiable) || errors.Is(err, byterange.ErrMulti) {
			w.Header().Set("Content-Range", byterange.Unsatisfiable(obj.Size))
			writeError(w, http.StatusRequestedRangeNotSatisfiable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := obj.Content.Seek(rng.Start, io.SeekStart); err != nil {
		logger.Error("seek media", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot read media file")
		return
	}

	w.Header().Set("Content-Range", rng.ContentRange())
	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.CopyN(w, obj.Content, rng.Length()); err != nil {
		logger.Warn("stream media",
			slog.String("range", header),
			slog.String("error", err.Error()),
		)
	}
}

// mediaType falls back to video/mp4 for extensions the system does not know.
func mediaType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "video/mp4"
}
