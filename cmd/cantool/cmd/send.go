package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roffe/canbridge/adapter"
	"github.com/spf13/cobra"
)

const flagWait = "wait"

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a command to the bridge and print what comes back",
	Example: `  cantool send send:123:DEADBEEF
  cantool send status --wait 2s`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := adapter.ParseCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}
		f := cmd.Flags()
		port, _ := f.GetString(flagPort)
		source, _ := f.GetString(flagSource)
		baudrate, _ := f.GetInt(flagBaudrate)
		wait, _ := f.GetDuration(flagWait)
		if port == "*" && source == "serial" {
			if port, err = selectPort(cmd); err != nil {
				return err
			}
		}

		s, err := newSession(cmd, nil)
		if err != nil {
			return err
		}
		src, err := adapter.New(source, &adapter.Config{
			Log:      appLog(),
			Port:     port,
			Baudrate: baudrate,
			OnStatus: s.pipeline.ConnectionChanged,
		})
		if err != nil {
			return err
		}
		sender, ok := src.(adapter.Sender)
		if !ok {
			return fmt.Errorf("%s: %w", src.Name(), adapter.ErrSendNotSupport)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), wait)
		defer cancel()
		if err := src.Open(ctx); err != nil {
			return err
		}
		defer src.Close()
		if err := sender.Send(command); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", command)

		err = s.pipeline.Run(ctx, src.Lines())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringP(flagSource, "s", "serial", "line source, see 'cantool sources'")
	f.Duration(flagWait, time.Second, "how long to print bridge replies")
	addOutputFlags(sendCmd)
	rootCmd.AddCommand(sendCmd)
}
