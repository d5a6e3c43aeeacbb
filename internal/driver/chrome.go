package driver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

// newBrowserContext builds an allocator and tab context for one automation
// run. The returned cancel func tears down the whole browser process; it
// must be deferred on every path so no Chrome instance outlives the call.
func (c *Chrome) newBrowserContext(ctx context.Context, headful bool) (context.Context, context.CancelFunc, error) {
	execPath := c.chromePath
	if execPath == "" {
		found, err := findBrowser()
		if err != nil {
			return nil, nil, err
		}
		execPath = found
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	if headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}
	return tabCtx, cancel, nil
}

// findBrowser probes for a usable Chrome/Chromium binary, in order of
// preference for the current platform.
func findBrowser() (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		candidates = []string{"chrome.exe", "chrome"}
	default:
		candidates = []string{
			"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome",
		}
	}
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", auth.NewDriverError(auth.DriverFailureBrowserUnavailable,
		fmt.Sprintf("no Chrome or Chromium binary found on %s", runtime.GOOS), nil)
}

// restoreCookies injects a saved session's cookies into the browser before
// the first navigation.
func restoreCookies(artifact *auth.SessionArtifact) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(artifact.Cookies))
		for _, cookie := range artifact.Cookies {
			param := &network.CookieParam{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Domain:   cookie.Domain,
				Path:     cookie.Path,
				Secure:   cookie.Secure,
				HTTPOnly: cookie.HTTPOnly,
			}
			if cookie.SameSite != "" {
				param.SameSite = network.CookieSameSite(cookie.SameSite)
			}
			if cookie.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(cookie.Expires), 0))
				param.Expires = &expires
			}
			params = append(params, param)
		}
		return network.SetCookies(params).Do(ctx)
	})
}

// snapshotCookies reads every cookie in the browser, httpOnly included.
func snapshotCookies(ctx context.Context) (*auth.SessionArtifact, string, error) {
	cookies, err := storage.GetCookies().Do(ctx)
	if err != nil {
		return nil, "", err
	}
	artifact := &auth.SessionArtifact{
		Cookies:    make([]auth.SessionCookie, 0, len(cookies)),
		CapturedAt: time.Now(),
	}
	raw := ""
	for _, cookie := range cookies {
		artifact.Cookies = append(artifact.Cookies, auth.SessionCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Expires:  cookie.Expires,
			HTTPOnly: cookie.HTTPOnly,
			Secure:   cookie.Secure,
			SameSite: string(cookie.SameSite),
		})
		if cookie.Name == tokenCookie {
			raw = cookie.Value
		}
	}
	return artifact, raw, nil
}

// onLoginPage reports whether the browser was bounced to the provider's
// auth host, the observable sign of a rejected session.
func onLoginPage(location string) bool {
	lower := strings.ToLower(location)
	return strings.Contains(lower, "auth.") || strings.Contains(lower, "/login")
}

// waitForToken polls the browser until the portal issues its token cookie.
// With rejectOnLogin set, landing on the login page ends the wait early as
// a rejected session; the interactive flow leaves it unset because the user
// is meant to be on that page. On token issuance the cookie jar is
// re-snapshotted after a short settle so late session cookies are captured
// too.
func (c *Chrome) waitForToken(ctx context.Context, interval time.Duration, rejectOnLogin bool) (string, *auth.SessionArtifact, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", nil, auth.NewDriverError(auth.DriverFailureTimeout,
				"no token appeared before the deadline", ctx.Err())
		case <-ticker.C:
		}

		var location string
		var artifact *auth.SessionArtifact
		var raw string
		err := chromedp.Run(ctx,
			chromedp.Location(&location),
			chromedp.ActionFunc(func(ctx context.Context) error {
				var errSnap error
				artifact, raw, errSnap = snapshotCookies(ctx)
				return errSnap
			}),
		)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, auth.NewDriverError(auth.DriverFailureTimeout,
					"no token appeared before the deadline", ctx.Err())
			}
			return "", nil, auth.NewDriverError(auth.DriverFailureNavigation,
				"could not inspect browser state", err)
		}

		if raw != "" {
			log.Debug("token cookie observed, letting the page settle")
			select {
			case <-ctx.Done():
				return raw, artifact, nil
			case <-time.After(2 * time.Second):
			}
			if settled, settledRaw, errSettle := resnapshot(ctx); errSettle == nil && settledRaw != "" {
				return settledRaw, settled, nil
			}
			return raw, artifact, nil
		}

		if rejectOnLogin && onLoginPage(location) {
			return "", nil, auth.NewDriverError(auth.DriverFailureSessionRejected,
				fmt.Sprintf("portal redirected to %s", location), nil)
		}
	}
}

func resnapshot(ctx context.Context) (*auth.SessionArtifact, string, error) {
	var artifact *auth.SessionArtifact
	var raw string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var errSnap error
		artifact, raw, errSnap = snapshotCookies(ctx)
		return errSnap
	}))
	return artifact, raw, err
}

// classifyRunError maps a failed chromedp.Run into the driver taxonomy.
func classifyRunError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return auth.NewDriverError(auth.DriverFailureTimeout,
			"browser automation did not complete in time", err)
	}
	return auth.NewDriverError(auth.DriverFailureNavigation,
		"portal navigation failed", err)
}
