package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"todo_api/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const connectAttempts = 5

// Options converts cfg into client options
func Options(cfg *config.RedisConfig) (*redis.Options, error) {
	dbIndex, err := strconv.Atoi(cfg.RedisDB)
	if err != nil || dbIndex < 0 {
		return nil, fmt.Errorf("invalid redis db number %q", cfg.RedisDB)
	}

	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.RedisPassword,
		DB:           dbIndex,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}, nil
}

// SetupRedis connects and pings Redis, retrying with backoff. The process
// exits if Redis never answers.
func SetupRedis(cfg *config.RedisConfig) *redis.Client {
	opts, err := Options(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid Redis configuration")
	}

	rdb := redis.NewClient(opts)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			break
		}

		if attempt == connectAttempts {
			logrus.WithError(err).Fatalf("Failed to connect to Redis after %d attempts", connectAttempts)
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("Redis not ready, retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	logrus.WithField("addr", opts.Addr).Info("Redis connection established successfully")
	return rdb
}
