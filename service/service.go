package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/testexec/testexec/metrics"
)

const (
	DefaultHealthzAddr = "127.0.0.1:8080"
	DefaultMetricsAddr = "127.0.0.1:7300"
)

// Service hosts the optional healthz and metrics HTTP endpoints. A desktop
// run usually leaves them on loopback; CI setups point Prometheus at the
// metrics address to track long soak runs.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	healthzAddr string
	metricsAddr string
}

func New(healthzAddr, metricsAddr string) *Service {
	if healthzAddr == "" {
		healthzAddr = DefaultHealthzAddr
	}
	if metricsAddr == "" {
		metricsAddr = DefaultMetricsAddr
	}
	return &Service{
		Healthz:     &HealthzServer{},
		Metrics:     &MetricsServer{},
		healthzAddr: healthzAddr,
		metricsAddr: metricsAddr,
	}
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")

	go func() {
		log.Info("starting healthz server", "addr", s.healthzAddr)
		if err := s.Healthz.Start(ctx, s.healthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		log.Info("starting metrics server", "addr", s.metricsAddr)
		if err := s.Metrics.Start(ctx, s.metricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	log.Info("metrics stopped")

	log.Info("service stopped")
}
