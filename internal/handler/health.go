package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Pinger is one dependency probed by the health check.
type Pinger func(ctx context.Context) error

// DBPinger probes the SQL pool behind db.
func DBPinger(db *gorm.DB) Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func RedisPinger(rdb *redis.Client) Pinger {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

// Health returns a JSON health check response.
// Dependencies are probed in parallel; never exposes credentials or internals.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		results := make([]string, len(checks))
		var g errgroup.Group
		for name, ping := range checks {
			i := len(names)
			names = append(names, name)
			ping := ping
			g.Go(func() error {
				results[i] = "connected"
				if ping(ctx) != nil {
					results[i] = "error"
				}
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		body := gin.H{}
		for i, name := range names {
			body[name] = results[i]
			if results[i] != "connected" {
				status = http.StatusServiceUnavailable
			}
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
