package main

import (
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/spf13/cobra"

	"github.com/pluribus-ai/pluribus/internal/config"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test request to the local server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			body := map[string]any{
				"model":      "claude-haiku-4-5",
				"max_tokens": 100,
				"messages": []map[string]any{
					{"role": "user", "content": "Hello, Claude 👋."},
				},
			}
			url := cfg.BaseURL() + "/anthropic/v1/messages"

			fmt.Println("Sending test request to local server...")
			fmt.Printf("Request URL: %s\n", url)

			resp, err := req.C().SetTimeout(5 * time.Minute).R().
				SetContext(cmd.Context()).
				SetBearerAuthToken(cfg.Secret).
				SetBody(body).
				Post(url)
			if err != nil {
				return fmt.Errorf("request failed (is the server running?): %w", err)
			}

			fmt.Printf("Response status: %d\n", resp.StatusCode)
			if !resp.IsSuccessState() {
				return fmt.Errorf("request failed: %s", resp.String())
			}

			fmt.Println("Response:")
			fmt.Println(resp.String())
			return nil
		},
	}
}
