package input

// Option customises Validate.
type Option func(o *options)

type options struct {
	allowUnknown bool
}

// WithAllowUnknown makes Validate ignore keys that no expected input declares.
func WithAllowUnknown() Option {
	return func(o *options) {
		o.allowUnknown = true
	}
}

func newOptions(opts []Option) *options {
	ret := &options{}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
