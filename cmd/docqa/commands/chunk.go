package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gopherai-docqa/internal/rag"
)

var (
	chunkSize    int
	chunkOverlap int
	chunkMaxRows int
	chunkAsJSON  bool
)

// NewChunkCmd creates the chunk command, which shows how files would be split for indexing.
func NewChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file>...",
		Short: "Show the chunks a file would be indexed as",
		Long: `Run files through table-aware chunking and text splitting without
embedding anything. Spreadsheets are listed as tables instead.`,
		Example: `  docqa chunk report.pdf notes.txt
  docqa chunk --chunk-size 500 --json invoice.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChunk,
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", rag.DefaultChunkSize, "Maximum chunk length in characters")
	cmd.Flags().IntVar(&chunkOverlap, "overlap", rag.DefaultChunkOverlap, "Characters shared by consecutive chunks")
	cmd.Flags().IntVar(&chunkMaxRows, "max-table-rows", rag.DefaultMaxTableRows, "Maximum rows per table block")
	cmd.Flags().BoolVar(&chunkAsJSON, "json", false, "Print chunks as JSON")
	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	if chunkOverlap >= chunkSize {
		return fmt.Errorf("overlap must be smaller than chunk size, got %d >= %d", chunkOverlap, chunkSize)
	}
	in, err := readInputs(args, nil)
	if err != nil {
		return err
	}

	pipeline := rag.NewPipeline(rag.PipelineConfig{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		MaxTableRows: chunkMaxRows,
	}, nil, nil, nil)
	chunks := pipeline.Chunk(in.Documents)

	out := cmd.OutOrStdout()
	if chunkAsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	for _, t := range in.Tables {
		fmt.Fprintf(out, "table %s: %d rows\n", t.Name, len(t.Rows))
	}
	for _, c := range chunks {
		fmt.Fprintf(out, "--- %s #%d (%d chars) ---\n%s\n", c.Metadata.SourceName(), c.Index, len([]rune(c.Text)), c.Text)
	}
	fmt.Fprintf(out, "%d chunks\n", len(chunks))
	return nil
}
