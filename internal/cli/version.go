package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/certnginx/internal/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show certnginx and nginx versions",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Certnginx string `json:"certnginx"`
	Nginx     string `json:"nginx"`
	SNI       bool   `json:"sni"`
	SSLModule bool   `json:"ssl_module"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	v := c.Version()
	info := versionInfo{
		Certnginx: version,
		Nginx:     v.String(),
		SNI:       v.SNI,
		SSLModule: v.SSLModule,
	}
	if jsonOutput {
		return output.JSON(info)
	}
	output.Print("certnginx %s", info.Certnginx)
	output.Print("nginx %s (sni: %v, ssl module: %v)", info.Nginx, info.SNI, info.SSLModule)
	return nil
}
