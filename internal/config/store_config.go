package config

// Redis locates the cache behind the session and OTP stores.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Postgres locates the user directory database.
type Postgres struct {
	DSN string `env:"POSTGRES_DSN"`
}
