package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

func TestNewChromeDefaults(t *testing.T) {
	t.Parallel()

	c := NewChrome(Options{})
	if c.portalURL != DefaultPortalURL {
		t.Errorf("portalURL = %q, want %q", c.portalURL, DefaultPortalURL)
	}
	if c.replayTimeout != DefaultReplayTimeout {
		t.Errorf("replayTimeout = %v, want %v", c.replayTimeout, DefaultReplayTimeout)
	}
	if c.loginTimeout != DefaultLoginTimeout {
		t.Errorf("loginTimeout = %v, want %v", c.loginTimeout, DefaultLoginTimeout)
	}
	if c.interactiveTimeout != DefaultInteractiveTimeout {
		t.Errorf("interactiveTimeout = %v, want %v", c.interactiveTimeout, DefaultInteractiveTimeout)
	}
}

func TestNewChromeOverrides(t *testing.T) {
	t.Parallel()

	c := NewChrome(Options{
		PortalURL:     "https://portal.example.com/",
		ChromePath:    "/opt/chrome/chrome",
		ReplayTimeout: 5 * time.Second,
	})
	if c.portalURL != "https://portal.example.com/" {
		t.Errorf("portalURL = %q", c.portalURL)
	}
	if c.chromePath != "/opt/chrome/chrome" {
		t.Errorf("chromePath = %q", c.chromePath)
	}
	if c.replayTimeout != 5*time.Second {
		t.Errorf("replayTimeout = %v", c.replayTimeout)
	}
	if c.loginTimeout != DefaultLoginTimeout {
		t.Errorf("loginTimeout = %v, want default", c.loginTimeout)
	}
}

func TestOnLoginPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		location string
		want     bool
	}{
		{"https://auth.ecobee.com/u/login?state=abc", true},
		{"https://www.ecobee.com/login", true},
		{"https://AUTH.ecobee.com/", true},
		{"https://www.ecobee.com/consumerportal/index.html", false},
		{"https://www.ecobee.com/", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := onLoginPage(tt.location); got != tt.want {
			t.Errorf("onLoginPage(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}

func TestClassifyRunError(t *testing.T) {
	t.Parallel()

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := classifyRunError(expired, errors.New("context deadline exceeded while running"))
	var driverErr *auth.DriverError
	if !errors.As(err, &driverErr) {
		t.Fatalf("classifyRunError() = %T, want *auth.DriverError", err)
	}
	if driverErr.Kind != auth.DriverFailureTimeout {
		t.Errorf("Kind = %q, want timeout", driverErr.Kind)
	}

	err = classifyRunError(context.Background(), errors.New("net::ERR_NAME_NOT_RESOLVED"))
	if !errors.As(err, &driverErr) {
		t.Fatalf("classifyRunError() = %T, want *auth.DriverError", err)
	}
	if driverErr.Kind != auth.DriverFailureNavigation {
		t.Errorf("Kind = %q, want navigation_failed", driverErr.Kind)
	}
}
