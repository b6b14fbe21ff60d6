package differ

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithIgnoredFields skips the named fields during comparison. Names match the
// Field values reported in FieldChange (e.g. "Lifecycle").
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}
