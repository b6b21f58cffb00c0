package service

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paymesh/walletgate/logger"
)

// endPoint represents an api element.
type endPoint struct {
	path       string
	handler    httprouter.Handle
	methodType string
}

type api struct {
	endpoints []endPoint
}

func makeAPI(endpoints []endPoint) *api {
	r := &api{}
	for _, e := range endpoints {
		r.addEndpoint(e)
	}
	return r
}

func makeServiceAPIs(s *Service) *api {
	endpoints := []endPoint{
		{
			path:       StatusEndPnt,
			handler:    s.Status(),
			methodType: http.MethodGet,
		},
		{
			path:       HealthEndPnt,
			handler:    s.Health(),
			methodType: http.MethodGet,
		},
		{
			path:       KeysDeriveEndPnt,
			handler:    s.DeriveKey(),
			methodType: http.MethodPost,
		},
		{
			path:       SignMessageEndPnt,
			handler:    s.SignMessage(),
			methodType: http.MethodPost,
		},
		{
			path:       SignTransactionEndPnt,
			handler:    s.SignTransaction(),
			methodType: http.MethodPost,
		},
	}
	if len(s.hooks) > 0 {
		endpoints = append(endpoints, endPoint{
			path:       hooksEndPnt,
			handler:    s.Hook(),
			methodType: http.MethodPost,
		})
	}
	return makeAPI(endpoints)
}

func (a *api) addEndpoint(e endPoint) {
	a.endpoints = append(a.endpoints, e)
}

// routes configures a new httprouter.Router, wrapping each handle (other
// than the metrics handle) with a logger.
func (a *api) routes(l logger.Logger, registry *prometheus.Registry) *httprouter.Router {

	router := httprouter.New()

	for _, e := range a.endpoints {
		router.Handle(e.methodType, e.path, logHTTPRequest(l, e.handler))
	}

	// Add metrics server - do not use logging middleware
	router.Handler(http.MethodGet, MetricsEndPnt, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return router
}

// logHTTPRequest provides logging middleware. It surfaces low level
// request/response data from the http server.
func logHTTPRequest(l logger.Logger, h httprouter.Handle) httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, req *http.Request, p httprouter.Params) {

		statusRecorder := &responseRecorder{ResponseWriter: w}

		start := time.Now()
		h(statusRecorder, req, p)
		elapsed := time.Since(start)
		if l == nil {
			return
		}

		httpCode := statusRecorder.statusCode
		fields := map[string]any{
			"http_method":          req.Method,
			"http_code":            httpCode,
			"elapsed_microseconds": elapsed.Microseconds(),
			"url":                  req.URL.Path,
		}
		if httpCode > 399 {
			fields["response"] = string(statusRecorder.response)
			l.Warn("http request failed", fields)
		} else {
			l.Debug("served http request", fields)
		}
	})
}

// responseRecorder is a wrapper for http.ResponseWriter used by the
// logging middleware.
type responseRecorder struct {
	http.ResponseWriter

	statusCode int
	response   []byte
}

func (w *responseRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	w.response = b
	return w.ResponseWriter.Write(b)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) error {
	response, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(response)
	return err
}

func respondWithError(w http.ResponseWriter, code int, msg any) {
	var message string
	switch m := msg.(type) {
	case error:
		message = m.Error()
	case string:
		message = m
	}
	_ = respondWithJSON(w, code, map[string]string{"error": message})
}
