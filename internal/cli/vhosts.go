package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/certnginx/internal/output"
)

var vhostsNamesOnly bool

var vhostsCmd = &cobra.Command{
	Use:     "vhosts",
	Aliases: []string{"ls"},
	Short:   "List the server blocks in the nginx configuration",
	Long: `List every server block in the configuration tree with its names,
listen addresses and ssl status.

Examples:
  certnginx vhosts
  certnginx vhosts --names
  certnginx vhosts --json`,
	RunE: runVhosts,
}

func init() {
	vhostsCmd.Flags().BoolVar(&vhostsNamesOnly, "names", false, "Print only the deployable server names")
	rootCmd.AddCommand(vhostsCmd)
}

type vhostItem struct {
	File  string   `json:"file"`
	Names []string `json:"names"`
	Addrs []string `json:"addrs"`
	SSL   bool     `json:"ssl"`
}

func runVhosts(cmd *cobra.Command, args []string) error {
	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	if vhostsNamesOnly {
		names := c.AllNames()
		if jsonOutput {
			return output.JSON(names)
		}
		for _, name := range names {
			output.Print("%s", name)
		}
		return nil
	}

	items := make([]vhostItem, 0, len(c.Vhosts()))
	for _, v := range c.Vhosts() {
		addrs := make([]string, len(v.Addrs))
		for i, a := range v.Addrs {
			addrs[i] = a.String()
		}
		items = append(items, vhostItem{
			File:  v.FilePath,
			Names: v.Names,
			Addrs: addrs,
			SSL:   v.SSLEnabled(),
		})
	}

	if jsonOutput {
		return output.JSON(items)
	}
	if len(items) == 0 {
		output.Info("No server blocks found")
		return nil
	}

	headers := []string{"FILE", "NAMES", "ADDRS", "SSL"}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		ssl := "no"
		if item.SSL {
			ssl = "yes"
		}
		rows = append(rows, []string{
			item.File,
			strings.Join(item.Names, " "),
			strings.Join(item.Addrs, " "),
			ssl,
		})
	}
	output.Table(headers, rows)
	return nil
}
