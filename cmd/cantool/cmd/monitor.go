package cmd

import (
	"fmt"
	"time"

	"github.com/roffe/canbridge/adapter"
	"github.com/spf13/cobra"
)

const (
	flagSource    = "source"
	flagReconnect = "reconnect"
	flagAttempts  = "attempts"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [id...]",
	Short: "Monitor the bridge and decode frames",
	Long: `Reads bridge lines from the serial port and prints every frame with its
decoded fields. Optional ids, hex with or without 0x, limit the output to
those frames.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		port, _ := f.GetString(flagPort)
		source, _ := f.GetString(flagSource)
		if port == "*" && source == "serial" {
			if port, err = selectPort(cmd); err != nil {
				return err
			}
		}
		baudrate, _ := f.GetInt(flagBaudrate)
		reconnect, _ := f.GetBool(flagReconnect)
		attempts, _ := f.GetUint(flagAttempts)

		s, err := newSession(cmd, ids)
		if err != nil {
			return err
		}
		src, err := adapter.New(source, &adapter.Config{
			Log:           appLog(),
			Port:          port,
			Baudrate:      baudrate,
			Reconnect:     reconnect,
			RetryAttempts: attempts,
			OnStatus:      s.pipeline.ConnectionChanged,
		})
		if err != nil {
			return err
		}
		start := time.Now()
		err = s.run(cmd.Context(), src)
		s.printSummary(cmd)
		fmt.Fprintf(cmd.OutOrStdout(), "%.1f lines/s over %s\n", s.pipeline.Stats().Rate(time.Now()), time.Since(start).Round(time.Second))
		return err
	},
}

func init() {
	f := monitorCmd.Flags()
	f.StringP(flagSource, "s", "serial", "line source, see 'cantool sources'")
	f.BoolP(flagReconnect, "r", true, "reopen the port when the bridge drops")
	f.Uint(flagAttempts, 10, "open attempts before giving up")
	addOutputFlags(monitorCmd)
	rootCmd.AddCommand(monitorCmd)
}
