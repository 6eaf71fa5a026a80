package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the given URL in the user's browser. The BROWSER
// environment variable, when set, takes precedence over the platform
// default opener.
func OpenBrowser(url string) error {
	if browser := os.Getenv("BROWSER"); browser != "" {
		if err := exec.Command(browser, url).Start(); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
		return nil
	}

	var cmd *exec.Cmd
	switch rt := getRuntime(); rt {
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
