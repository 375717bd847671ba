package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/provider/claudecode"
)

// providerArgs maps the CLI spelling of each provider type.
var providerArgs = map[string]provider.Type{
	"anthropic":   provider.TypeAnthropic,
	"openai":      provider.TypeOpenAI,
	"claude-code": provider.TypeClaudeCode,
	"codex":       provider.TypeCodex,
}

func newLoginCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Log in to a provider via OAuth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := strings.ToLower(args[0])
			providerType, ok := providerArgs[arg]
			if !ok {
				return fmt.Errorf("unknown provider %q (expected anthropic, openai, claude-code, or codex)", args[0])
			}
			if providerType != provider.TypeClaudeCode {
				return fmt.Errorf("provider %s not yet supported", arg)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if name == "" {
				name = arg
			}

			fmt.Println("Starting Claude Code OAuth login...")
			fmt.Println()
			creds, err := claudecode.PerformLogin(cmd.Context(), os.Stdin, os.Stdout)
			if err != nil {
				return fmt.Errorf("OAuth login failed: %w", err)
			}

			record := &provider.Config{
				Name:  name,
				Type:  provider.TypeClaudeCode,
				OAuth: creds,
			}
			if err := provider.Save(cfg.ProvidersDir, name, record); err != nil {
				return fmt.Errorf("save provider config: %w", err)
			}

			fmt.Println()
			fmt.Println("Login successful!")
			fmt.Printf("Provider: %s\n", name)
			fmt.Printf("Config file: %s\n", filepath.Join(cfg.ProvidersDir, name+".toml"))
			if len(creds.Scopes) > 0 {
				fmt.Printf("Scopes: %s\n", strings.Join(creds.Scopes, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "custom name for this provider instance")
	return cmd
}
