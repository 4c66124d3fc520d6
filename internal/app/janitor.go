package app

import (
	"context"
	"time"

	"github.com/ortiqov/contract_bot/internal/form"
	"go.uber.org/zap"
)

// Janitor фоновая задача, выселяющая простаивающие сессии из реестра
type Janitor struct {
	registry *form.Registry
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewJanitor создаёт janitor. Сессии без переходов дольше ttl
// удаляются, проверка идёт раз в interval.
func NewJanitor(registry *form.Registry, ttl time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		registry: registry,
		ttl:      ttl,
		interval: ttl / 4,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновую очистку
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting session janitor",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval))

	go j.run(ctx)
}

// Stop останавливает фоновую очистку
func (j *Janitor) Stop() {
	close(j.stopChan)
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := j.registry.EvictIdle(j.ttl); evicted > 0 {
				j.logger.Info("Evicted idle sessions",
					zap.Int("count", evicted),
					zap.Int("active", j.registry.Len()))
			}
		case <-j.stopChan:
			j.logger.Info("Session janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Session janitor cancelled")
			return
		}
	}
}
