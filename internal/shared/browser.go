package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// PreferencesURL builds the dashboard URL for the email preferences page.
//
// An empty domain links to the overview; unsubscribeID and token, when set, produce the deep link sent in emails.
func PreferencesURL(base, domain, unsubscribeID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: dashboard url %q: %v", ErrInvalidConfig, base, err)
	}

	u = u.JoinPath("email-preferences")
	if domain != "" {
		u = u.JoinPath(domain)
	}

	if unsubscribeID != "" {
		q := u.Query()
		q.Set("unsubscribe", unsubscribeID)
		if token != "" {
			q.Set("token", token)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
