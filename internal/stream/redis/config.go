package redis

import (
	"fmt"
	"os"
)

type RedisStreamConfig struct {
	RedisAddr     string
	RedisPassword string
	Stream        string
	Group         string
	ConsumerName  string
}

// NewRedisStreamConfig names the consumer after the process when no
// consumer name is given.
func NewRedisStreamConfig(redisAddr string, redisPassword string, stream string, group string, consumerName string) *RedisStreamConfig {
	if consumerName == "" {
		consumerName = fmt.Sprintf("scorer-%d", os.Getpid())
	}
	return &RedisStreamConfig{
		RedisAddr:     redisAddr,
		RedisPassword: redisPassword,
		Stream:        stream,
		Group:         group,
		ConsumerName:  consumerName,
	}
}
