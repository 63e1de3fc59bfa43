// Package flags provides reusable flag types for CLI commands.
package flags

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ByteSize implements pflag.Value for sizes such as "512", "64KiB" or "10MB".
type ByteSize int64

// String returns the size in IEC units.
func (b *ByteSize) String() string {
	if *b <= 0 {
		return "0"
	}
	return humanize.IBytes(uint64(*b))
}

// Set parses value with humanize.ParseBytes.
func (b *ByteSize) Set(value string) error {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", value, err)
	}
	*b = ByteSize(n)
	return nil
}

// Type specifies the type label for Cobra flags.
func (b *ByteSize) Type() string {
	return "size"
}
