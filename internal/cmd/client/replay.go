package client

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/rtstream/internal/config"
	"github.com/rzbill/rtstream/internal/recorder"
	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream/filter"
)

// newReplayCommand constructs the `replay` command.
func newReplayCommand() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Print messages recorded by tail --record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			limit, _ := cmd.Flags().GetInt("limit")
			expr, _ := cmd.Flags().GetString("filter")
			var lc log.Config
			applyLogFlags(cmd.Flags(), &lc)
			logger, err := newLogger(cmd, lc)
			if err != nil {
				return err
			}
			pred, err := filter.Compile(expr)
			if err != nil {
				return err
			}
			rec, err := recorder.Open(recorder.Options{Dir: dir, Logger: logger})
			if err != nil {
				return err
			}
			defer rec.Close()

			out := newLineWriter(cmd.OutOrStdout())
			printed, corrupt := 0, 0
			var werr error
			err = rec.Scan(func(e recorder.Entry) bool {
				if !pred(e.Message) {
					return true
				}
				line := newMessageLine(e.Message)
				line.Key = e.Key.String()
				line.Endpoint = e.Endpoint
				if werr = out.write(line); werr != nil {
					return false
				}
				printed++
				return limit <= 0 || printed < limit
			}, func(*recorder.CorruptError) { corrupt++ })
			if err != nil {
				return err
			}
			if werr != nil {
				return werr
			}
			if corrupt > 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d corrupt entries\n", corrupt)
			}
			return nil
		},
	}
	replayCmd.Flags().String("dir", cfgpkg.DefaultRecordDir(), "Record directory")
	replayCmd.Flags().Int("limit", 0, "Stop after N messages (0 = all)")
	replayCmd.Flags().String("filter", "", "CEL filter applied to recorded messages")
	addLogFlags(replayCmd.Flags())
	return replayCmd
}
