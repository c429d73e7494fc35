package registry

import "github.com/okian/furlong/pkg/logger"

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithVersion sets the manifest version reported by Info.
func WithVersion(v string) Option {
	return func(r *Registry) {
		r.version = v
	}
}
