package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enhanceFlags struct {
	domain string
	chain  string
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <redirect|staple-ocsp>",
	Short: "Apply an enhancement to the server blocks serving a domain",
	Long: `Apply a security enhancement to every server block serving a domain.

Supported enhancements:
  redirect      redirect plaintext requests for the domain to https
  staple-ocsp   enable OCSP stapling (requires --chain and nginx >= 1.3.7)

Examples:
  certnginx enhance redirect -d example.com
  certnginx enhance staple-ocsp -d example.com --chain /etc/letsencrypt/live/example.com/chain.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceFlags.domain, "domain", "d", "", "Domain to enhance (required)")
	enhanceCmd.Flags().StringVar(&enhanceFlags.chain, "chain", "", "Path to the issuer chain (staple-ocsp only)")
	_ = enhanceCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if err := validateDomain(enhanceFlags.domain); err != nil {
		return err
	}

	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Enhance(enhanceFlags.domain, kind, enhanceFlags.chain); err != nil {
		return err
	}

	return outputResult(CommandResult{
		Success: true,
		Domain:  enhanceFlags.domain,
		Action:  fmt.Sprintf("enhance:%s", kind),
	}, "Applied %s for %s", kind, enhanceFlags.domain)
}
