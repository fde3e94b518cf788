package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/talk"
)

// Response headers.
const (
	headerContentType        = "Content-Type"
	headerContentLength      = "Content-Length"
	headerContentDisposition = "Content-Disposition"
	headerConnection         = "Connection"
	contentTypeJSON          = "application/json; charset=UTF-8"
	contentTypeWAV           = "audio/wav"
)

type licenseHandler struct {
	licenses LicenseReporter
}

func (h *licenseHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	// A map[string]bool always marshals.
	body, _ := json.Marshal(h.licenses.Status())

	writeSuccess(w, contentTypeJSON, body)
}

type talkHandler struct {
	talker       Talker
	maxBodyBytes int64
	log          *logger.Logger
}

func (h *talkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	result, err := h.talker.TalkForm(r.Context(), r.Header.Get(headerContentType), body)
	if err != nil {
		h.log.Error("Talk request could not be answered: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	if result.Fallback {
		h.log.Warn("Answered %s with the fallback utterance (%s)", r.RemoteAddr, talk.Kind(result.Cause))
	}

	w.Header().Set(headerContentDisposition, fmt.Sprintf("attachment; filename=%q", talk.Filename(time.Now())))
	writeSuccess(w, contentTypeWAV, result.Audio)
}

// writeSuccess frames a complete 200 response and closes the connection after it.
func writeSuccess(w http.ResponseWriter, contentType string, body []byte) {
	header := w.Header()
	header.Set(headerContentType, contentType)
	header.Set(headerContentLength, strconv.Itoa(len(body)))
	header.Set(headerConnection, "close")

	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(body)
}
