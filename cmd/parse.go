package cmd

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/extract"
)

type parseOutput struct {
	extract.Result
	Missing []extract.Field `json:"missing"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse TEXT...",
		Short: "Extract reservation fields from a message and print them as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := toolConfig()
			if err != nil {
				return err
			}
			ex, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			res := ex.Extract(strings.Join(args, " "), cfg.Year(time.Now()))
			out := parseOutput{Result: res, Missing: res.Missing(extract.Required...)}
			if out.Missing == nil {
				out.Missing = []extract.Field{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
}
