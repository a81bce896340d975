package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/ports"
)

// Health is the liveness report served by the health endpoint.
type Health struct {
	Status         string    `json:"status"`
	StoreReachable bool      `json:"storeReachable"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// HealthService probes the store.
type HealthService struct {
	tx      ports.TransactionManager
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthService(tx ports.TransactionManager, timeout time.Duration, logger *zap.Logger) *HealthService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthService{tx: tx, timeout: timeout, logger: logger}
}

// Check never fails; an unreachable store is reported as degraded.
func (s *HealthService) Check(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	h := Health{Status: "healthy", StoreReachable: true, CheckedAt: time.Now().UTC()}
	if err := s.tx.Ping(ctx); err != nil {
		s.logger.Warn("Store health check failed", zap.Error(err))
		h.Status = "degraded"
		h.StoreReachable = false
	}
	return h
}
