package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"gopherai-docqa/internal/app"
)

// readInputs loads every path into one ingest input.
func readInputs(paths []string, describer app.ImageDescriber) (app.IngestInput, error) {
	var in app.IngestInput
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return in, fmt.Errorf("read %s: %w", p, err)
		}
		one, err := app.ReadFile(filepath.Base(p), data, describer)
		if err != nil {
			return in, fmt.Errorf("load %s: %w", p, err)
		}
		in.Documents = append(in.Documents, one.Documents...)
		in.Tables = append(in.Tables, one.Tables...)
	}
	return in, nil
}
