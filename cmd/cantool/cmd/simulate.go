package cmd

import (
	"context"
	"time"

	"github.com/roffe/canbridge/adapter"
	"github.com/spf13/cobra"
)

const flagDuration = "duration"

var simulateCmd = &cobra.Command{
	Use:   "simulate [id...]",
	Short: "Decode generated harness, switch and sensor traffic",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		interval, _ := f.GetDuration(flagInterval)
		duration, _ := f.GetDuration(flagDuration)

		s, err := newSession(cmd, ids)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}
		src := adapter.NewSimulator(&adapter.Config{
			Log:      appLog(),
			Interval: interval,
			OnStatus: s.pipeline.ConnectionChanged,
		})
		err = s.run(ctx, src)
		s.printSummary(cmd)
		return err
	},
}

func init() {
	f := simulateCmd.Flags()
	f.Duration(flagInterval, 200*time.Millisecond, "time between simulated frame groups")
	f.Duration(flagDuration, 0, "stop after this long, 0 runs until interrupted")
	addOutputFlags(simulateCmd)
	rootCmd.AddCommand(simulateCmd)
}
