// Package serverselect decides which configured server a command talks to.
package serverselect

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"

	"github.com/quickcred/quickcred/internal/cli/config"
	"github.com/quickcred/quickcred/internal/cli/userconfig"
)

var errNoServers = fmt.Errorf("no servers configured in %s", config.ConfigFileName)

// PromptFunc asks the user to pick one of servers
type PromptFunc func(servers []config.Server) (*config.Server, error)

// Resolver picks a server from a project config. In order it tries the
// --server alias, the server remembered in the user config, the only
// configured server, and finally an interactive prompt. Whatever is picked
// without an alias is remembered for next time.
type Resolver struct {
	cfg    *config.Config
	prompt PromptFunc
	logger zerolog.Logger
}

// New creates a resolver over cfg that prompts on the terminal
func New(cfg *config.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{cfg: cfg, prompt: Prompt, logger: logger}
}

// WithPrompt replaces the interactive prompt
func (r *Resolver) WithPrompt(prompt PromptFunc) *Resolver {
	r.prompt = prompt
	return r
}

// Resolve returns the server to use
func (r *Resolver) Resolve(alias string) (*config.Server, error) {
	if alias != "" {
		return r.cfg.GetServerByAlias(alias)
	}

	if server := r.remembered(); server != nil {
		return server, nil
	}

	var server *config.Server
	switch len(r.cfg.Servers) {
	case 0:
		return nil, errNoServers
	case 1:
		server = &r.cfg.Servers[0]
	default:
		picked, err := r.prompt(r.cfg.Servers)
		if err != nil {
			return nil, err
		}
		server = picked
	}

	r.remember(server)
	return server, nil
}

// remembered returns the server saved in the user config, if it is still
// part of the project config. A stale entry is forgotten.
func (r *Resolver) remembered() *config.Server {
	origin, err := userconfig.SelectedServer()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to read selected server")
		return nil
	}
	if origin == "" {
		return nil
	}

	server, err := findByURL(r.cfg, origin)
	if err == nil {
		return server
	}

	r.logger.Debug().Str("origin", origin).Msg("Selected server is no longer configured")
	if err := userconfig.ForgetServer(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to forget selected server")
	}
	return nil
}

func (r *Resolver) remember(server *config.Server) {
	origin, err := server.Origin()
	if err == nil {
		err = userconfig.SelectServer(origin)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("alias", server.Alias).Msg("Failed to save selected server")
	}
}

// Find returns the server matching a URL or an alias
func Find(cfg *config.Config, urlOrAlias string) (*config.Server, error) {
	if server, err := findByURL(cfg, urlOrAlias); err == nil {
		return server, nil
	}
	if server, err := cfg.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

// findByURL matches by origin, so "localhost:5000/" finds "https://localhost:5000"
func findByURL(cfg *config.Config, rawURL string) (*config.Server, error) {
	want, err := (&config.Server{URL: rawURL}).Origin()
	if err != nil {
		return nil, err
	}

	for i := range cfg.Servers {
		if origin, err := cfg.Servers[i].Origin(); err == nil && origin == want {
			return &cfg.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found in project config", rawURL)
}

// Prompt asks on the terminal which server to use
func Prompt(servers []config.Server) (*config.Server, error) {
	if len(servers) == 0 {
		return nil, errNoServers
	}

	labels := make([]string, len(servers))
	for i, server := range servers {
		labels[i] = fmt.Sprintf("%s (%s)", server.Alias, server.URL)
	}

	prompt := promptui.Select{
		Label: "Select a server",
		Items: labels,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
		Size: 10,
	}

	index, _, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) {
		return nil, fmt.Errorf("server selection cancelled")
	}
	if err != nil {
		return nil, fmt.Errorf("server selection failed: %w", err)
	}
	return &servers[index], nil
}
