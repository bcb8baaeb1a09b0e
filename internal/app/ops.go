package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthCheck проверяет доступность зависимости (пул БД и т.п.)
type HealthCheck func(ctx context.Context) error

// OpsServer служебный HTTP сервер: метрики и health
type OpsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewOpsServer(addr, metricsPath string, metrics http.Handler, health HealthCheck, logger *zap.Logger) *OpsServer {
	return &OpsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewOpsRouter(metricsPath, metrics, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewOpsRouter собирает маршруты служебного сервера
func NewOpsRouter(metricsPath string, metrics http.Handler, health HealthCheck) *mux.Router {
	r := mux.NewRouter()
	r.Handle(metricsPath, metrics).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if health != nil {
			if err := health(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodGet)
	return r
}

// Start слушает адрес в фоне
func (s *OpsServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Starting ops server", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ops server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
