package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/canbridge/parser"
	"github.com/roffe/canbridge/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "cantool",
	Short:        "CAN bridge monitor and decoder",
	Long:         `Reads the line protocol of a serial CAN bridge, decodes frames and prints them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return logger.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagPort     = "port"
	flagBaudrate = "baudrate"
	flagDebug    = "debug"
	flagConfig   = "config"
	flagLogFile  = "log-file"
	flagNoColor  = "no-color"
)

var (
	logger *logging.Logger
	fs     = afero.NewOsFs()
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "*", "com-port, * = print available")
	pf.IntP(flagBaudrate, "b", 115200, "baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.StringP(flagConfig, "c", "canbridge.yaml", "parser config, .yaml .json or .toml")
	pf.String(flagLogFile, "", "also write a rotating json log to this file")
	pf.Bool(flagNoColor, false, "disable colored output")
}

func setupLogging(cmd *cobra.Command) error {
	pf := cmd.Flags()
	debug, err := pf.GetBool(flagDebug)
	if err != nil {
		return err
	}
	noColor, err := pf.GetBool(flagNoColor)
	if err != nil {
		return err
	}
	file, err := pf.GetString(flagLogFile)
	if err != nil {
		return err
	}
	if noColor {
		color.NoColor = true
	}
	logger = logging.New(logging.Config{
		App:     "cantool",
		Debug:   debug,
		NoColor: color.NoColor,
		File:    file,
		Console: cmd.ErrOrStderr(),
	})
	return nil
}

func appLog() zerolog.Logger {
	if logger == nil {
		return zerolog.Nop()
	}
	return logger.Logger
}

// loadRegistry builds the default registry and applies the config file on
// top. A broken config is reported but does not stop the command.
func loadRegistry(cmd *cobra.Command) (*parser.Registry, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	reg := parser.NewDefaultRegistry(appLog())
	if path == "" {
		return reg, nil
	}
	if err := reg.LoadConfig(fs, path); err != nil {
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			return nil, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "config %s ignored: %v\n", path, err)
	}
	return reg, nil
}
