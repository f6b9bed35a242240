package settings

import (
	"github.com/rs/zerolog"

	"github.com/stevemurr/simple-settings-store/schema"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for queue and listener diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l.With().Str("component", "settings").Logger()
	}
}

// WithSchemas validates root values against reg before every write.
func WithSchemas(reg schema.Registry) Option {
	return func(s *Store) {
		s.schemas = reg
	}
}
