package config

// Mail configures outbound email through Resend. An empty API key disables
// sending; reset codes are then only written to the cache.
type Mail struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"MAIL_FROM" envDefault:"noreply@localhost"`
}

// Enabled reports whether outbound email is configured.
func (m Mail) Enabled() bool {
	return m.ResendAPIKey != ""
}
