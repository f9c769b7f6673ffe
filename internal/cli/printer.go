package cli

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"tosctl/internal/services"
)

// ConsolePrinter renders workflow events as plain lines. Error-styled
// messages go to stderr so JSON and piped output stay clean.
type ConsolePrinter struct {
	Out io.Writer
	Err io.Writer
}

func NewConsolePrinter() *ConsolePrinter {
	return &ConsolePrinter{Out: os.Stdout, Err: os.Stderr}
}

func (p *ConsolePrinter) Print(message string, style string) {
	w := p.Out
	if style == services.StyleError || style == services.StyleWarning {
		w = p.Err
	}
	fmt.Fprintln(w, message)
}

func (p *ConsolePrinter) PrintJSON(v interface{}) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(p.Err, "json encoding failed: %v\n", err)
		return
	}
	fmt.Fprintln(p.Out, string(payload))
}
