//go:build !ipframing

package transport

// DefaultFraming is the framing compiled into this build.
func DefaultFraming() Framing { return NamedFraming{} }
