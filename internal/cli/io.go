package cli

import (
	"fmt"
	"io"
)

// IO collects command output and warnings. Warnings go to stderr and
// turn the exit code into 1 without suppressing normal output.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
}

func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

func (o *IO) Warn(msg string) {
	o.warnings = append(o.warnings, msg)
}

func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Finish prints collected warnings and returns the exit code.
func (o *IO) Finish() int {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}
