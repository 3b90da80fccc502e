package stream

import "github.com/lhiwi/acis-insurance-project/internal/stream/redis"

const (
	DefaultStream = "risk-jobs"
	DefaultGroup  = "risk-scorers"
)

type StreamConfig struct {
	Provider    string // only redis for now
	RedisConfig *redis.RedisStreamConfig
}
