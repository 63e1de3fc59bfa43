package request

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// String renders the snapshot:
//
//	<METHOD> <URL>
//	<Name>: <v1>,<v2>
//	<body>
//
// Header lines are ordered by normalized name. The output always ends with the
// body line and a newline, so an empty body yields a trailing empty line.
func (s *Snapshot) String() string {
	var b strings.Builder
	_ = RenderTo(&b, s)
	return b.String()
}

// RenderTo writes the String form of s to w. Only write errors are returned.
func RenderTo(w io.Writer, s *Snapshot) error {
	var b strings.Builder
	b.WriteString(s.Method)
	b.WriteByte(' ')
	if s.URL != nil {
		b.WriteString(s.URL.String())
	}
	b.WriteByte('\n')

	for _, key := range s.Headers.Keys() {
		f := s.Headers[key]
		b.WriteString(f.Name)
		b.WriteString(": ")
		for i, v := range f.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(LossyText(v))
		}
		b.WriteByte('\n')
	}

	b.WriteString(LossyText(string(s.Body)))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// BodyText returns the body as text, replacing invalid UTF-8.
func (s *Snapshot) BodyText() string {
	return LossyText(string(s.Body))
}

// LossyText returns s with every invalid UTF-8 byte replaced by U+FFFD.
func LossyText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return out
}
