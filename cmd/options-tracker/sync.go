package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/STTM-NSU/options-tracker/internal/tools"
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var showState bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the pipeline once and print the enriched positions as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			var (
				mu   sync.Mutex
				errs []error
			)
			a.pipeline.OnError(func(stage string, err error) {
				mu.Lock()
				defer mu.Unlock()
				errs = append(errs, fmt.Errorf("%s: %w", stage, err))
			})

			a.pipeline.Sync(cmd.Context())
			a.pipeline.Wait()

			var out any = a.store.Positions()
			if showState {
				out = a.store.Snapshot()
			}
			if err := tools.EncodeJSON(cmd.OutOrStdout(), out); err != nil {
				return fmt.Errorf("%w: can't print positions", err)
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&showState, "state", false, "print the whole state instead of positions")

	return cmd
}
