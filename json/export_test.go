package json

import "os"

// WithWriter replaces the write-and-sync step for tests.
func WithWriter(fn func(*os.File, []byte) error) Option {
	return func(led *Ledger) {
		led.write = fn
	}
}
