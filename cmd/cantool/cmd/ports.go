package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/roffe/canbridge/adapter"
	"github.com/spf13/cobra"
)

const flagBridges = "bridges"

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPorts(cmd)
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List line sources",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, info := range adapter.List() {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		}
	},
}

func init() {
	portsCmd.Flags().Bool(flagBridges, false, "only list ports that look like a CAN bridge")
	rootCmd.AddCommand(portsCmd, sourcesCmd)
}

var listSerialPorts = adapter.ListPorts

var choosePort = func(label string, items []string) (int, error) {
	prompt := promptui.Select{
		Label:    label,
		Items:    items,
		Size:     10,
		HideHelp: true,
	}
	i, _, err := prompt.Run()
	return i, err
}

func portLabel(p adapter.PortInfo) string {
	label := p.Name
	if p.Product != "" {
		label += "  " + p.Product
	}
	if p.IsUSB {
		label += fmt.Sprintf(" (%s:%s)", p.VID, p.PID)
	}
	return label
}

// selectPort picks the bridge to open. A single bridge is used directly,
// several are offered in a prompt.
func selectPort(cmd *cobra.Command) (string, error) {
	ports, err := listSerialPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", adapter.ErrNoPorts
	}
	bridges := adapter.FindBridges(ports)
	switch len(bridges) {
	case 0:
		return "", fmt.Errorf("%w, pass --port, see 'cantool ports'", adapter.ErrNoBridges)
	case 1:
		fmt.Fprintf(cmd.ErrOrStderr(), "using %s\n", portLabel(bridges[0]))
		return bridges[0].Name, nil
	}
	items := make([]string, len(bridges))
	for i, p := range bridges {
		items[i] = portLabel(p)
	}
	i, err := choosePort(fmt.Sprintf("Select CAN bridge (%d found)", len(bridges)), items)
	if err != nil {
		return "", fmt.Errorf("port selection: %w", err)
	}
	return bridges[i].Name, nil
}

func listPorts(cmd *cobra.Command) error {
	ports, err := listSerialPorts()
	if err != nil {
		return err
	}
	if only, _ := cmd.Flags().GetBool(flagBridges); only {
		ports = adapter.FindBridges(ports)
	}
	if len(ports) == 0 {
		return adapter.ErrNoPorts
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tUSB\tVID:PID\tSERIAL\tPRODUCT\tBRIDGE")
	for _, p := range ports {
		vidpid := ""
		if p.IsUSB {
			vidpid = p.VID + ":" + p.PID
		}
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\t%s\t%v\n", p.Name, p.IsUSB, vidpid, p.SerialNumber, p.Product, adapter.IsBridge(p))
	}
	return w.Flush()
}
