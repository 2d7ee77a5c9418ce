package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/roffe/canbridge/adapter"
	"github.com/roffe/canbridge/pkg/bar"
	"github.com/spf13/cobra"
)

const (
	flagFile     = "file"
	flagProgress = "progress"
	flagInterval = "interval"
	flagIDs      = "ids"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [line...]",
	Short: "Decode bridge lines or replay a capture",
	Example: `  cantool decode "CAN_RX;0x101;23,80"
  cantool decode --file capture.log --quiet --progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		file, _ := f.GetString(flagFile)
		idArgs, _ := f.GetStringSlice(flagIDs)
		ids, err := parseIDs(idArgs)
		if err != nil {
			return err
		}
		s, err := newSession(cmd, ids)
		if err != nil {
			return err
		}

		if file == "" {
			if len(args) == 0 {
				return errors.New("nothing to decode, pass lines or --file")
			}
			for _, l := range args {
				s.pipeline.HandleLine(l)
			}
			return nil
		}

		interval, _ := f.GetDuration(flagInterval)
		cfg := &adapter.Config{
			Log:      appLog(),
			Fs:       fs,
			File:     file,
			Interval: interval,
			OnStatus: s.pipeline.ConnectionChanged,
		}
		if progress, _ := f.GetBool(flagProgress); progress {
			fi, err := fs.Stat(file)
			if err != nil {
				return err
			}
			b := bar.New(fi.Size(), "replay")
			defer fmt.Fprintln(cmd.OutOrStdout())
			cfg.OnProgress = bar.Progress(b)
		}
		src, err := adapter.NewFile(cfg)
		if err != nil {
			return err
		}
		start := time.Now()
		if err := s.run(cmd.Context(), src); err != nil {
			return err
		}
		s.printSummary(cmd)
		l := appLog()
		l.Debug().Dur("took", time.Since(start)).Str("file", file).Msg("replay done")
		return nil
	},
}

func init() {
	f := decodeCmd.Flags()
	f.StringP(flagFile, "f", "", "capture file to replay")
	f.Bool(flagProgress, false, "show replay progress")
	f.Duration(flagInterval, 0, "delay between replayed lines")
	f.StringSlice(flagIDs, nil, "only show these CAN ids")
	addOutputFlags(decodeCmd)
	rootCmd.AddCommand(decodeCmd)
}
