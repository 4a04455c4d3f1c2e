package log

// Option is one configuration step. Options compose left to right over an
// immutable config value, each returning the modified copy.
type Option func(config) config

// apply folds opts over cfg and returns the result.
func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}
