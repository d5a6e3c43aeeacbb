// Package driver automates the Ecobee consumer portal through a Chrome
// browser, in two modes: a visible, user-paced login and a headless replay
// that mints fresh tokens from saved state. The portal exposes no
// programmatic login, so the login-page DOM and navigation sequence below
// are provider-specific and expected to need maintenance when the web app
// changes; that fragility is an accepted risk of the whole approach.
package driver

import (
	"time"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

// DefaultPortalURL is the page that triggers token issuance once the
// browser carries an authenticated session.
const DefaultPortalURL = "https://www.ecobee.com/consumerportal/"

// tokenCookie is the portal cookie that carries the bearer token.
const tokenCookie = "_TOKEN"

// Bounded timeouts for the headless paths. The interactive path is
// user-paced and gets a long ceiling instead.
const (
	DefaultReplayTimeout      = 20 * time.Second
	DefaultLoginTimeout       = 45 * time.Second
	DefaultInteractiveTimeout = 15 * time.Minute
)

// Options configures a Chrome driver. Zero values fall back to defaults.
type Options struct {
	// PortalURL overrides the consumer portal entry point.
	PortalURL string
	// ChromePath points at a specific browser binary instead of probing.
	ChromePath string
	// ReplayTimeout bounds a headless session replay.
	ReplayTimeout time.Duration
	// LoginTimeout bounds a headless credential form login, which needs
	// longer than a replay because the login form has to render and submit.
	LoginTimeout time.Duration
	// InteractiveTimeout is the ceiling on a visible, user-paced login.
	InteractiveTimeout time.Duration
}

// Chrome drives the portal through a local Chrome or Chromium binary. It
// implements both auth.HeadlessDriver and auth.InteractiveDriver.
type Chrome struct {
	portalURL          string
	chromePath         string
	replayTimeout      time.Duration
	loginTimeout       time.Duration
	interactiveTimeout time.Duration
}

// NewChrome constructs a driver with the given options.
func NewChrome(opts Options) *Chrome {
	c := &Chrome{
		portalURL:          opts.PortalURL,
		chromePath:         opts.ChromePath,
		replayTimeout:      opts.ReplayTimeout,
		loginTimeout:       opts.LoginTimeout,
		interactiveTimeout: opts.InteractiveTimeout,
	}
	if c.portalURL == "" {
		c.portalURL = DefaultPortalURL
	}
	if c.replayTimeout <= 0 {
		c.replayTimeout = DefaultReplayTimeout
	}
	if c.loginTimeout <= 0 {
		c.loginTimeout = DefaultLoginTimeout
	}
	if c.interactiveTimeout <= 0 {
		c.interactiveTimeout = DefaultInteractiveTimeout
	}
	return c
}

var (
	_ auth.HeadlessDriver    = (*Chrome)(nil)
	_ auth.InteractiveDriver = (*Chrome)(nil)
)
