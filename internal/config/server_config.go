package config

import "strings"

// Server is the HTTP listener configuration.
type Server struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Account Service"`
	Env     string `env:"ENV" envDefault:"DEV"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
}

// Addr returns the listen address with a leading colon regardless of how
// PORT was supplied.
func (s Server) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// IsDev reports whether the service runs in its development environment.
func (s Server) IsDev() bool {
	return strings.EqualFold(s.Env, "DEV")
}
