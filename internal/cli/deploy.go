package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/certnginx/internal/session"
)

var deployFlags struct {
	domain    string
	fullchain string
	key       string
	chain     string
	redirect  bool
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Install a certificate into the server blocks serving a domain",
	Long: `Install a certificate into every server block serving a domain.

The matched blocks gain an ssl listen directive when they have none,
plus ssl_certificate, ssl_certificate_key, the shared ssl options
include and ssl_dhparam. Re-running with the same paths is a no-op;
re-running with renewed paths replaces them.

Examples:
  certnginx deploy -d example.com --fullchain /etc/letsencrypt/live/example.com/fullchain.pem --key /etc/letsencrypt/live/example.com/privkey.pem
  certnginx deploy -d '*.example.com' --fullchain fullchain.pem --key privkey.pem --redirect`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVarP(&deployFlags.domain, "domain", "d", "", "Domain to deploy for (required)")
	deployCmd.Flags().StringVar(&deployFlags.fullchain, "fullchain", "", "Path to the fullchain certificate (required)")
	deployCmd.Flags().StringVar(&deployFlags.key, "key", "", "Path to the private key (required)")
	deployCmd.Flags().StringVar(&deployFlags.chain, "chain", "", "Path to the issuer chain (for OCSP stapling)")
	deployCmd.Flags().BoolVar(&deployFlags.redirect, "redirect", false, "Also redirect plaintext traffic to https")
	_ = deployCmd.MarkFlagRequired("domain")
	_ = deployCmd.MarkFlagRequired("fullchain")
	_ = deployCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if err := validateDomain(deployFlags.domain); err != nil {
		return err
	}

	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	certs := session.CertPaths{
		Fullchain: deployFlags.fullchain,
		Key:       deployFlags.key,
		Chain:     deployFlags.chain,
	}
	if err := c.Deploy(deployFlags.domain, certs); err != nil {
		return err
	}

	if deployFlags.redirect {
		if err := c.Enhance(deployFlags.domain, "redirect", ""); err != nil {
			return err
		}
	}

	return outputResult(CommandResult{
		Success: true,
		Domain:  deployFlags.domain,
		Action:  "deploy",
	}, "Certificate deployed for %s", deployFlags.domain)
}
