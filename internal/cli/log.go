package cli

import (
	"github.com/spf13/cobra"
)

// NewLogCmd создаёт команду просмотра журнала продавца.
func NewLogCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show seller journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := backendFn().ListLogs(cmd.Context(), owner, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{formatTime(e.CreatedAt), e.Category, e.Message}
			}
			return outputFn().Print([]string{"TIME", "CATEGORY", "MESSAGE"}, rows, entries)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Seller nick")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
