package app

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

func newCoverageCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage [list]",
		Short: "Compute vocabulary coverage of a target list",
		Long: `Compute how much of a target list is already learned. Without a list argument
the flashcard service's default list is used. --limit 0 prints every missing word.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			limit := cfg.GetDetailLimit()
			if cmd.Flags().Changed("limit") {
				if limit, err = cmd.Flags().GetInt("limit"); err != nil {
					return err
				}
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			var list remote.TargetListDescriptor
			if len(args) == 1 {
				list = remote.List(args[0])
			}

			st, err := computeCoverage(cmd.Context(), client, list, limit)
			if err != nil {
				return err
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			return printCoverage(cmd.OutOrStdout(), *st.SelectedList, *st.Coverage)
		},
	}
	addFormatFlag(cmd)
	cmd.Flags().Int("limit", 0, "Number of missing words to show, 0 for all (default from coverage.detailLimit)")
	return cmd
}

// computeCoverage fetches the coverage of list, or of the service's default list
// when list is zero, through a synchronizer so the rules match the dashboard's.
func computeCoverage(
	ctx context.Context,
	source coverage.CoverageSource,
	list remote.TargetListDescriptor,
	limit int,
) (coverage.SyncState, error) {
	if limit < 0 {
		return coverage.SyncState{}, &coverage.ValidationError{Op: "coverage", List: list.Identifier, Err: coverage.ErrInvalidLimit}
	}

	s := coverage.New(source, coverage.WithSummaryLimit(limit))
	if list.IsZero() {
		if err := s.Initialize(ctx); err != nil {
			return coverage.SyncState{}, err
		}
	} else {
		if err := s.LoadLists(ctx); err != nil {
			return coverage.SyncState{}, err
		}
		if st := s.State(); st.Error != "" {
			return st, errors.New(st.Error)
		}
		if err := s.SelectList(ctx, list, limit); err != nil {
			return coverage.SyncState{}, err
		}
	}

	st := s.State()
	switch {
	case st.Error != "":
		return st, errors.New(st.Error)
	case st.SelectedList == nil:
		return st, errors.New("the flashcard service has no default target list; pass one as an argument")
	case st.Coverage == nil:
		return st, errors.New("no coverage returned")
	}
	return st, nil
}
