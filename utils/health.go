package utils

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Mongo     *bool     `json:"mongo,omitempty"`
	Postgres  *bool     `json:"postgres,omitempty"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// HealthTargets lists the backends to ping. Nil entries are skipped.
type HealthTargets struct {
	Redis    []*redis.Client
	Mongo    *mongo.Client
	Postgres *sql.DB
}

// StartHealthMonitor performs periodic health checks and updates in-memory state
// until ctx is cancelled.
func StartHealthMonitor(ctx context.Context, targets HealthTargets, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var status HealthStatus
		for _, client := range targets.Redis {
			status.Redis = append(status.Redis, client.Ping(pingCtx).Err() == nil)
		}
		if targets.Mongo != nil {
			ok := targets.Mongo.Ping(pingCtx, nil) == nil
			status.Mongo = &ok
		}
		if targets.Postgres != nil {
			ok := targets.Postgres.PingContext(pingCtx) == nil
			status.Postgres = &ok
		}
		status.CheckedAt = time.Now()

		mu.Lock()
		currentHealth = status
		mu.Unlock()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		check()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}
