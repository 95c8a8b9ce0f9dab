package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/DeforaOS/libSystem/internal/logging"
)

// RootOptions holds the flags shared by every command of a tool.
type RootOptions struct {
	LogLevel string
	NoColor  bool

	logger *slog.Logger
}

func (o *RootOptions) setup(stderr io.Writer) error {
	level, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return commandError("", err)
	}
	o.logger = logging.NewWithWriter(stderr, level)
	if o.NoColor {
		color.NoColor = true
	}
	return nil
}

// Logger returns the logger configured by the flags.
func (o *RootOptions) Logger() *slog.Logger {
	return logging.OrNop(o.logger)
}

var (
	sectionColor = color.New(color.FgCyan)
	keyColor     = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
)

// printEntry writes value, or section.key=value when verbose. The section
// prefix is omitted for the default section.
func printEntry(w io.Writer, verbose bool, section, key, value string) {
	if !verbose {
		fmt.Fprintln(w, value)
		return
	}
	if section != "" {
		sectionColor.Fprint(w, section)
		fmt.Fprint(w, ".")
	}
	keyColor.Fprint(w, key)
	fmt.Fprintf(w, "=%s\n", value)
}
