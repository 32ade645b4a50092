package commands

import (
	"fmt"

	"github.com/quickcred/quickcred/internal/cli/config"
	"github.com/quickcred/quickcred/internal/cli/serverselect"
	"github.com/quickcred/quickcred/internal/cli/userconfig"
	"github.com/spf13/cobra"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ quickcred select-server                          # Interactive selection
  $ quickcred select-server https://app.quickcred.in # Select by URL
  $ quickcred select-server local                    # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'quickcred init' to create a configuration file", err)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = serverselect.Find(cfg, urlOrAlias)
	} else {
		server, err = serverselect.Prompt(cfg.Servers)
	}
	if err != nil {
		return err
	}

	origin, err := server.Origin()
	if err != nil {
		return err
	}
	if err := userconfig.SelectServer(origin); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Printf("Selected server: %s (%s)\n", server.Alias, origin)
	return nil
}
