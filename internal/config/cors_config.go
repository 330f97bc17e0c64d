package config

// Cors lists the origins the browser clients are served from.
type Cors struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}
