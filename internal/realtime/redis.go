package realtime

import (
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates the client shared by the rate limiter and notification fan-out.
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	log.Printf("Redis client created (addr: %s)\n", addr)
	return rdb
}

// NotificationChannel is the pub/sub channel for one user's notifications.
func NotificationChannel(userID string) string {
	return "notifications:" + userID
}
