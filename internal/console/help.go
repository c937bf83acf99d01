package console

import (
	"fmt"
	"io"

	"github.com/roach88/esm/internal/demo"
)

// WriteHelp writes one line per command: name, arguments and description,
// tab separated.
func WriteHelp(w io.Writer) {
	for _, spec := range demo.Commands {
		WriteUsage(w, spec)
	}
}

// WriteUsage writes the help line for one command.
func WriteUsage(w io.Writer, spec demo.Spec) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, spec.Args, spec.Description)
}
