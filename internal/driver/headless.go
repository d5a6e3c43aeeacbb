package driver

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

const headlessPollInterval = 500 * time.Millisecond

// Login form selectors on the provider's hosted auth page. These track the
// live web app and break when it changes; there is nothing sturdier to bind
// to without a sanctioned API.
const (
	usernameSelector = `input[name="username"]`
	passwordSelector = `input[name="password"]`
	submitSelector   = `button[type="submit"]`
)

// ReplaySession restores the saved cookies into a headless browser and
// navigates to the portal, which re-issues the token cookie when the
// provider still honors the session. The rotated cookie jar is returned so
// the caller can persist it in place of the old one.
func (c *Chrome) ReplaySession(ctx context.Context, artifact *auth.SessionArtifact) (string, *auth.SessionArtifact, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, c.replayTimeout)
	defer cancelTimeout()

	browserCtx, cancel, err := c.newBrowserContext(ctx, false)
	if err != nil {
		return "", nil, err
	}
	defer cancel()

	log.Debugf("replaying saved session (%d cookies) against %s", len(artifact.Cookies), c.portalURL)
	if err = chromedp.Run(browserCtx,
		restoreCookies(artifact),
		chromedp.Navigate(c.portalURL),
	); err != nil {
		return "", nil, classifyRunError(browserCtx, err)
	}

	return c.waitForToken(browserCtx, headlessPollInterval, true)
}

// CredentialLogin submits the stored username and password through the
// provider's login form in a headless browser, then waits for token
// issuance exactly like a replay. A timeout here most often means the
// provider raised a challenge (MFA, captcha) that headless automation
// cannot answer.
func (c *Chrome) CredentialLogin(ctx context.Context, credential *auth.StoredCredential) (string, *auth.SessionArtifact, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, c.loginTimeout)
	defer cancelTimeout()

	browserCtx, cancel, err := c.newBrowserContext(ctx, false)
	if err != nil {
		return "", nil, err
	}
	defer cancel()

	log.Debugf("headless credential login for %s", credential.Username)
	if err = chromedp.Run(browserCtx,
		chromedp.Navigate(c.portalURL),
		chromedp.WaitVisible(usernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(usernameSelector, credential.Username, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, credential.Secret, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
	); err != nil {
		return "", nil, classifyRunError(browserCtx, err)
	}

	// The login page is expected here, so redirects to it are not treated
	// as rejection; only the deadline ends the wait.
	return c.waitForToken(browserCtx, headlessPollInterval, false)
}
