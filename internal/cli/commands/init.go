package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quickcred/quickcred/internal/cli/config"
	"github.com/spf13/cobra"
)

type initOptions struct {
	alias       string
	skipBrowser bool
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a QuickCred server to quickcred.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitWithOptions(args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Alias for the server (defaults to server-N)")
	cmd.Flags().BoolVar(&opts.skipBrowser, "no-browser", false, "Do not open the server in a browser")

	return cmd
}

func runInitWithOptions(args []string, opts *initOptions) error {
	server := config.Server{URL: args[0]}
	origin, err := server.Origin()
	if err != nil {
		return err
	}
	server.URL = origin

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Printf("Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	serverExists := false
	for i := range cfg.Servers {
		if existing, err := cfg.Servers[i].Origin(); err == nil && existing == origin {
			serverExists = true
			break
		}
	}

	if serverExists {
		fmt.Printf("Server %s already exists in %s\n", origin, config.ConfigFileName)
	} else {
		server.Alias = opts.alias
		if server.Alias == "" {
			server.Alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
		cfg.Servers = append(cfg.Servers, server)

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Printf("✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, origin, server.Alias)
		} else {
			fmt.Printf("✓ Added server %s (%s) to ./%s\n", origin, server.Alias, config.ConfigFileName)
		}
	}

	if !opts.skipBrowser {
		fmt.Printf("\nOpening %s...\n", origin)
		if err := openBrowser(origin); err != nil {
			fmt.Printf("⚠ Could not open browser automatically: %v\n", err)
			fmt.Printf("Please visit: %s\n", origin)
		}
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'quickcred register' to create an account")
	fmt.Println("  2. Run 'quickcred login' to sign in")

	return nil
}
