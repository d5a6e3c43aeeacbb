// Package browser opens URLs in the user's default web browser. Unlike the
// driver package, which controls a dedicated Chrome instance, this is for
// handing a page to whatever the user normally browses with.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// OpenURL opens url in the default browser, falling back to
// platform-specific commands when the generic launcher fails.
func OpenURL(url string) error {
	err := open.Run(url)
	if err == nil {
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific commands", err)
	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, launcher := range []string{"xdg-open", "x-www-browser", "www-browser"} {
			if _, errLook := exec.LookPath(launcher); errLook == nil {
				cmd = exec.Command(launcher, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("no suitable browser launcher found")
		}
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start browser command: %w", err)
	}
	return nil
}
