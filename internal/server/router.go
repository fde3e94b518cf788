package server

import (
	"net/http"

	"github.com/book-expert/logger"
)

// Route paths.
const (
	PathCheckLicenses = "/check_licenses"
	PathTalk          = "/talk"
)

// Router dispatches on method and path only. The query string never takes part
// in matching.
type Router struct {
	talk     http.Handler
	licenses http.Handler
	static   http.Handler
}

// NewRouter creates the handler tree. Files are served from documentRoot.
func NewRouter(
	talker Talker,
	licenses LicenseReporter,
	documentRoot string,
	maxBodyBytes int64,
	log *logger.Logger,
) *Router {
	return &Router{
		talk:     &talkHandler{talker: talker, maxBodyBytes: maxBodyBytes, log: log},
		licenses: &licenseHandler{licenses: licenses},
		static:   http.FileServer(http.Dir(documentRoot)),
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch r.Method {
	case http.MethodGet:
		if path == PathCheckLicenses {
			rt.licenses.ServeHTTP(w, r)

			return
		}

		rt.static.ServeHTTP(w, r)
	case http.MethodHead:
		rt.static.ServeHTTP(w, r)
	case http.MethodPost:
		if path == PathTalk {
			rt.talk.ServeHTTP(w, r)

			return
		}

		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}
