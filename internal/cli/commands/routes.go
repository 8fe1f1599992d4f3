package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authgate-dev/authgate/internal/authz"
)

// NewRoutesCmd creates the routes command: a debugging aid that shows
// what the authorization gate would do for a route, given the current
// session.
func NewRoutesCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "routes <path>",
		Short: "Check a route against the authorization rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := buildAuth()
			if err != nil {
				return err
			}

			if rulesFile == "" {
				rulesFile = cfg.RouteRulesFile
			}
			if rulesFile == "" {
				return fmt.Errorf("no rules file (use --rules flag or AUTHGATE_ROUTE_RULES env var)")
			}

			rules, err := authz.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			gate := authz.NewGate(rules)

			c.Restore(cmd.Context())

			role := ""
			if user := c.User(); user != nil {
				role = user.Role
			}

			result := gate.Check(args[0], c.IsAuthenticated(), role)
			if result.Decision == authz.Allow {
				fmt.Printf("%s: allowed\n", args[0])
			} else {
				fmt.Printf("%s: denied, redirect to %s\n", args[0], result.RedirectTo)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesFile, "rules", "", "Route rules YAML file")

	return cmd
}
