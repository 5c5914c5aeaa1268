package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/inference"
	"github.com/cyclopcam/leafscan/server/resultdb"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() {
	logEveryRequest := false
	router := httprouter.New()

	handle := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if logEveryRequest {
				s.Log.Infof("HTTP %v %v", method, r.URL.Path)
			}
			handle(w, r, params)
		})
	}

	// We create a unique rate limiter for each endpoint, so there's no need for httprate.KeyByEndpoint
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		if requestLimit <= 0 {
			www.Handle(s.Log, router, method, route, handle)
			return
		}
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	handle("GET", "/api/ping", s.httpPing)
	handle("GET", "/api/backends", s.httpBackends)
	ratelimited("POST", "/api/submit", s.httpSubmit, s.Config.SubmitRateLimit, time.Minute)
	handle("GET", "/api/results", s.httpListResults)
	handle("GET", "/api/result/:id/download", s.httpDownloadResult)
	handle("DELETE", "/api/result/:id", s.httpDeleteResult)
	handle("GET", "/api/stats", s.httpStats)
	handle("POST", "/api/export", s.httpExport)

	s.httpRouter = router
}

// httpStatus maps our sentinel errors onto HTTP status codes
func httpStatus(err error) int {
	switch {
	case errors.Is(err, inference.ErrValidation),
		errors.Is(err, inference.ErrUnknownBackend),
		errors.Is(err, backend.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, resultdb.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// check panics with an HTTPError if err is not nil
func check(err error) {
	if err != nil {
		panic(www.HTTPError{Code: httpStatus(err), Message: err.Error()})
	}
}

// Read the request body, failing with 413 if it exceeds maxBytes
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) []byte {
	if r.Body == nil {
		www.PanicBadRequestf("Request body is empty")
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		www.Panic(http.StatusRequestEntityTooLarge, "Image is too large")
	}
	www.Check(err)
	return body
}
