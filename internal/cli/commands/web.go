package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

// NewWebCmd creates the web command
func NewWebCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Open the QuickCred web app in a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeb()
		},
	}

	return cmd
}

func runWeb() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	origin, err := server.Origin()
	if err != nil {
		return err
	}

	fmt.Printf("Opening %s (%s)...\n", server.Alias, origin)

	if err := openBrowser(origin); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, origin)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
