package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

const interactivePollInterval = time.Second

// Login opens a visible browser on the portal and blocks until the user
// completes the provider's login UI, whatever challenges it raises. The
// wait is user-paced under a generous ceiling; killing the process is the
// only other way out. Session cookies and the initial token are captured
// before the browser closes.
func (c *Chrome) Login(ctx context.Context) (string, *auth.SessionArtifact, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, c.interactiveTimeout)
	defer cancelTimeout()

	browserCtx, cancel, err := c.newBrowserContext(ctx, true)
	if err != nil {
		return "", nil, err
	}
	defer cancel()

	fmt.Println("Opening browser for Ecobee login...")
	fmt.Println("Please sign in with your Ecobee credentials. The browser closes by itself when done.")

	if err = chromedp.Run(browserCtx, chromedp.Navigate(c.portalURL)); err != nil {
		return "", nil, classifyRunError(browserCtx, err)
	}

	log.Debug("waiting for the user to complete the portal login")
	raw, artifact, err := c.waitForToken(browserCtx, interactivePollInterval, false)
	if err != nil {
		return "", nil, err
	}

	fmt.Println("Login successful, capturing session...")
	return raw, artifact, nil
}
