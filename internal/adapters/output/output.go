package output

import "io"

// Printer renders command results.
type Printer interface {
	Print(v any) error
}

// New returns the JSON or human printer writing to w.
func New(w io.Writer, json bool) Printer {
	if json {
		return JSONPrinter{Out: w}
	}
	return HumanPrinter{Out: w}
}
