package cli

import (
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Validate the nginx configuration",
	Long: `Run nginx's own configuration check against the configured tree.

Examples:
  certnginx test`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.ConfigTest(); err != nil {
		return err
	}
	return outputResult(CommandResult{
		Success: true,
		Action:  "test",
	}, "Configuration is valid")
}
