package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTargetsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the target word lists offered by the flashcard service",
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

			lists, err := client.FetchAvailableLists(cmd.Context())
			if err != nil {
				return err
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), lists)
			}
			return printTargets(cmd.OutOrStdout(), lists)
		},
	}
	addFormatFlag(cmd)
	return cmd
}
