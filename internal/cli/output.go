package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/uscensus/internal/table"
)

// writeTable prints t as CSV to stdout, or to --out when set
func writeTable(t *table.Table) (err error) {
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, createErr := os.Create(outFile)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		w = f
	}

	if err := t.WriteCSV(w); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	if outFile != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %d rows to %s\n", t.Len(), outFile)
	}
	return nil
}
