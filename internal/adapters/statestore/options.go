package statestore

// options configures the badger backend.
type options struct {
	dir      string
	inMemory bool
}

// Option applies a configuration option to OpenBadger.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{dir: "geobridge-state"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDir sets the on-disk directory of the badger backend.
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithInMemory runs badger without disk persistence (tests, throwaway runs).
func WithInMemory(inMemory bool) Option {
	return func(o *options) {
		o.inMemory = inMemory
	}
}
