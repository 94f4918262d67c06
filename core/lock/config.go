package lock

// Config holds configuration for the optional distributed lock.
type Config struct {
	// RedisAddr is the Redis address. Empty disables distributed locking.
	RedisAddr string `mapstructure:"redis_addr" default:""`
	// RedisPassword is the Redis password.
	RedisPassword string `mapstructure:"redis_password" default:""`
	// RedisDB is the Redis logical database.
	RedisDB int `mapstructure:"redis_db" default:"0"`
	// TTLSeconds is how long a lock is held before it expires on its own.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"60"`
	// WaitSeconds is how long Obtain keeps retrying a held lock.
	WaitSeconds int `mapstructure:"wait_seconds" default:"5"`
}
