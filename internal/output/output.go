// Package output renders a Snapshot (or any JSON-shaped value) to an
// io.Writer in the format the caller asked for. Adapted from oriys/nova's
// cmd-level output.Printer, trimmed to the two machine-readable formats a
// build pipeline actually consumes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how Printer renders a value.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format string, defaulting to JSON for anything it
// doesn't recognize.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Printer writes a value to w in the configured Format.
type Printer struct {
	format Format
	writer io.Writer
}

// NewPrinter returns a Printer that writes to w in format.
func NewPrinter(format Format, w io.Writer) *Printer {
	return &Printer{format: format, writer: w}
}

// Print encodes data in the configured format.
func (p *Printer) Print(data interface{}) error {
	switch p.format {
	case FormatYAML:
		enc := yaml.NewEncoder(p.writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(p.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

// Warning writes a warning line to w, outside of the encoded payload.
func Warning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "warning: "+format+"\n", args...)
}
