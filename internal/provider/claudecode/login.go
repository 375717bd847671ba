package claudecode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/pkg/oauth"
	"github.com/pluribus-ai/pluribus/internal/provider"
)

// PerformLogin runs the interactive OAuth login: authorize URL, code paste,
// code exchange. A cached pre-authorization session younger than one hour is
// reused so a failed paste does not invalidate the URL. The exchange loop
// retries with the same session until it succeeds or input ends.
func PerformLogin(ctx context.Context, in io.Reader, out io.Writer) (*provider.OAuthCredentials, error) {
	session := oauth.LoadLoginSession()
	if session != nil {
		fmt.Fprintln(out, "Using cached OAuth session (delete cache to start fresh)")
		fmt.Fprintf(out, "Cache file: %s\n\n", oauth.LoginCachePath())
	} else {
		var err error
		session, err = oauth.NewLoginSession()
		if err != nil {
			return nil, err
		}
		if err := session.Save(); err != nil {
			logger.L().Warn("failed to save oauth login cache", zap.Error(err))
		}
	}

	fmt.Fprintln(out, "Open the following URL in your browser to authorize:")
	fmt.Fprintf(out, "%s\n\n", session.AuthorizeURL)
	if err := openBrowser(session.AuthorizeURL); err != nil {
		logger.L().Warn("failed to open browser", zap.Error(err))
	}

	scanner := bufio.NewScanner(in)
	for {
		code, err := readAuthorizationCode(scanner, out)
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("login aborted: %w", err)
			}
			fmt.Fprintf(out, "Error: %v. Please try again.\n\n", err)
			continue
		}

		token, err := oauth.ExchangeCode(ctx, code, session.Verifier, session.State)
		if err != nil {
			fmt.Fprintf(out, "Error: %v. Please try again.\n\n", err)
			continue
		}

		oauth.ClearLoginSession()
		return credentialsFromToken(token), nil
	}
}

// readAuthorizationCode reads one pasted code. Some upstreams hand back
// code#state; only the part before # counts.
func readAuthorizationCode(scanner *bufio.Scanner, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter authorization code: ")
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	code, _, _ := strings.Cut(strings.TrimSpace(scanner.Text()), "#")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("authorization code cannot be empty")
	}
	return code, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
