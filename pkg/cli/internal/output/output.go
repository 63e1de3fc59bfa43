// Package output provides common output formatting utilities.
package output

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// JSON writes indented JSON to w.
func JSON(w io.Writer, v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Warn prints a warning message to w.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Warning: "+format+"\n", args...)
}
