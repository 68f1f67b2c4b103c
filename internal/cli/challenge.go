package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ksyq12/certnginx/internal/challenge"
)

var challengeFlags struct {
	domain   string
	token    string
	response string
	clean    bool
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Serve or remove a temporary http-01 challenge answer",
	Long: `Write a temporary server block answering an ACME http-01 challenge
and reload nginx to serve it. The block lives outside the permanent
checkpoint history; run with --clean once validation finishes to
remove it and restore the configuration.

Examples:
  certnginx challenge -d example.com --token tok123 --response tok123.acct
  certnginx challenge --clean`,
	RunE: runChallenge,
}

func init() {
	challengeCmd.Flags().StringVarP(&challengeFlags.domain, "domain", "d", "", "Domain being validated")
	challengeCmd.Flags().StringVar(&challengeFlags.token, "token", "", "Challenge token (the request path suffix)")
	challengeCmd.Flags().StringVar(&challengeFlags.response, "response", "", "Key authorization served as the answer body")
	challengeCmd.Flags().BoolVar(&challengeFlags.clean, "clean", false, "Remove the challenge configuration instead of deploying one")
	rootCmd.AddCommand(challengeCmd)
}

func runChallenge(cmd *cobra.Command, args []string) error {
	if challengeFlags.clean {
		c, err := newSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.RevertChallenge(); err != nil {
			return err
		}
		return outputResult(CommandResult{
			Success: true,
			Action:  "challenge:clean",
		}, "Removed challenge configuration")
	}

	if err := validateDomain(challengeFlags.domain); err != nil {
		return err
	}
	if challengeFlags.token == "" || challengeFlags.response == "" {
		return fmt.Errorf("challenge requires --token and --response")
	}

	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	challenges := []challenge.Challenge{{
		Domain:   challengeFlags.domain,
		Token:    challengeFlags.token,
		Response: challengeFlags.response,
	}}
	if err := c.DeployChallenges(challenges); err != nil {
		return err
	}

	return outputResult(CommandResult{
		Success: true,
		Domain:  challengeFlags.domain,
		Action:  "challenge:deploy",
	}, "Serving challenge answer for %s", challengeFlags.domain)
}
