package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

type checker interface {
	LastResult() (model.TickResult, bool)
}

type trigger interface {
	Trigger()
}

type server struct {
	checker  checker
	trigger  trigger
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func New(c checker, t trigger, gatherer prometheus.Gatherer) *server {
	return &server{checker: c, trigger: t, gatherer: gatherer, logger: zap.L()}
}

// Handler returns the routes wrapped in the logging middleware.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.GetHealth)
	mux.HandleFunc("GET /status", s.GetStatus)
	mux.HandleFunc("POST /check", s.PostCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return LoggingMiddleware(mux)
}

func (s *server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.checker.LastResult()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no price check has finished yet"))
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *server) PostCheck(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info("price check requested over http")
	s.trigger.Trigger()
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("accepted"))
}

func handleError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(err.Error()))
}
