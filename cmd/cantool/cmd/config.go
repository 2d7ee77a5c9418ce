package cmd

import (
	"fmt"

	"github.com/roffe/canbridge/parser"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the parser config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default parser setup to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString(flagConfig)
		force, _ := cmd.Flags().GetBool("force")
		if exists, err := afero.Exists(fs, path); err != nil {
			return err
		} else if exists && !force {
			return fmt.Errorf("%s exists, use --force to overwrite", path)
		}
		reg := parser.NewDefaultRegistry(appLog())
		if err := reg.SaveConfig(fs, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective parser setup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		b, err := parser.EncodeConfig("config."+format, reg.Snapshot())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().String("format", "yaml", "yaml, json or toml")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
