package redis

const (
	defaultAddr      = "127.0.0.1:6379"
	defaultDB        = 0
	defaultKeyPrefix = "contribsync:"
	defaultPoolSize  = 10
)
