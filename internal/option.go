package internal

import "github.com/starford/solo/internal/storage"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	storage storage.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStorage overrides the vault storage provider. When unset, Run
// opens a filesystem provider rooted at the configured vault path.
func WithStorage(p storage.Provider) Option {
	return func(a *application) {
		a.storage = p
	}
}
