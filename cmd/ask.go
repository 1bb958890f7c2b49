package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retail-analytics/internal/model"
)

var (
	askFormatHint string
	askID         string
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a single question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		id := askID
		if id == "" {
			id = uuid.New().String()
		}

		ans, err := env.Pipeline.Run(ctx, model.Question{
			ID:         id,
			Text:       args[0],
			FormatHint: askFormatHint,
		})
		if err != nil {
			return eris.Wrap(err, "answer question")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	},
}

func init() {
	askCmd.Flags().StringVar(&askFormatHint, "format-hint", "str", "declared answer shape, e.g. int, float, list[{product: str, revenue: float}]")
	askCmd.Flags().StringVar(&askID, "id", "", "question id (default random)")
	rootCmd.AddCommand(askCmd)
}
