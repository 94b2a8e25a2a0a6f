package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
)

var (
	askFiles  []string
	askAsJSON bool
)

// NewAskCmd creates the ask command: load files into a fresh workspace, then answer one question.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question over local files",
		Long: `Load the given files into an in-memory workspace and answer one question.

Spreadsheets (.xlsx, .xlsm, .csv) are registered as tables; PDF, Word, PowerPoint and text
files are embedded into the vector index. Requires LLM_API_KEY, and an
embedding key when documents are loaded.`,
		Example: `  docqa ask --file sales.xlsx "What is the total revenue?"
  docqa ask -f policy.pdf -f faq.txt "How long do refunds take?"`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "File to load (repeatable)")
	cmd.Flags().BoolVar(&askAsJSON, "json", false, "Print the answer with its route metadata as JSON")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	core, err := loadCore()
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			core.Logger.Warn("close core failed", zap.Error(err))
		}
		_ = core.Logger.Sync()
	}()

	if len(askFiles) > 0 {
		in, err := readInputs(askFiles, core.Describer())
		if err != nil {
			return err
		}
		if _, err := core.QA.Ingest(cmd.Context(), in); err != nil {
			return err
		}
	}

	answer, err := core.QA.Ask(cmd.Context(), app.AskInput{Query: args[0]})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askAsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	fmt.Fprintln(out, answer.Response)
	return nil
}
