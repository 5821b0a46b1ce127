package api

// ServerConfig configures the control API listener.
type ServerConfig struct {
	Addr string `help:"Control API listen address" default:"localhost:3243" env:"PADCTL_API_ADDR"`
}
