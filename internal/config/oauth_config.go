package config

// Google configures OAuth sign-in through Google. Empty ClientID disables
// the feature.
type Google struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// Enabled reports whether Google sign-in is configured.
func (g Google) Enabled() bool {
	return g.ClientID != ""
}
