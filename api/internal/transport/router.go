package transport

import "net/http"

type Handler interface {
	submitUpload(w http.ResponseWriter, r *http.Request)
	submitURL(w http.ResponseWriter, r *http.Request)
	status(w http.ResponseWriter, r *http.Request)

	transcripts(w http.ResponseWriter, r *http.Request)
	transcriptContent(w http.ResponseWriter, r *http.Request)
	logs(w http.ResponseWriter, r *http.Request)
	logContent(w http.ResponseWriter, r *http.Request)
	media(w http.ResponseWriter, r *http.Request)
	mediaStream(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h Handler
}

func NewRouter(h Handler) *router {
	return &router{h: h}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/jobs", r.h.submitUpload)
	mux.HandleFunc("/jobs/from-url", r.h.submitURL)
	mux.HandleFunc("/jobs/status", r.h.status)

	mux.HandleFunc("/files", r.h.transcripts)
	mux.HandleFunc("/files/content", r.h.transcriptContent)
	mux.HandleFunc("/logs", r.h.logs)
	mux.HandleFunc("/logs/content", r.h.logContent)
	mux.HandleFunc("/media", r.h.media)
	mux.HandleFunc("/media/stream", r.h.mediaStream)

	return mux
}
