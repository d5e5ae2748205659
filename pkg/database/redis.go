package database

import (
	"context"
	"fmt"
	"log"
	"mysql_practice_backend/internal/config"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisDialTimeout = 3 * time.Second

// InitRedis 连接题目缓存；Ping 失败时关闭客户端并返回错误
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultRedisDialTimeout
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", rdb.Options().Addr, err)
	}

	log.Printf("Redis connection established (pool=%d, db=%d)", rdb.Options().PoolSize, cfg.DB)
	return rdb, nil
}
