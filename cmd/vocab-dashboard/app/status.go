package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koreanvocab/vocab-dashboard/internal/health"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the flashcard and status services once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			snap := health.New(client).RunOnce(cmd.Context())

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			return printStatus(cmd.OutOrStdout(), snap)
		},
	}
	addFormatFlag(cmd)
	return cmd
}
