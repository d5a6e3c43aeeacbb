// Package api is the thin REST glue over the thermostat endpoints. It asks
// the token lifecycle for a bearer token before each call and reports
// authorization failures back so the lifecycle can recover; everything else
// here is request/response plumbing.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/sumesh2279/ecobee-cli/internal/auth"
)

// TokenProvider is the slice of the lifecycle manager the client needs:
// a token before each call, an invalidation hook when the provider rejects
// one, and a place to cache the thermostat selection.
type TokenProvider interface {
	AcquireToken(ctx context.Context) (*auth.Token, error)
	Invalidate(ctx context.Context) error
	RememberThermostat(ctx context.Context, thermostatID string) error
}

// Client issues authenticated requests against the thermostat API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
}

// NewClient constructs a client over the given API base URL.
func NewClient(baseURL string, tokens TokenProvider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// do sends one authenticated request. A 401 invalidates the cached token
// and retries once with a freshly acquired one; a second 401 means the
// refreshed token is also unacceptable, which only interactive login fixes.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body string) (gjson.Result, error) {
	resp, err := c.send(ctx, method, endpoint, query, body)
	if err != nil {
		return gjson.Result{}, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Debug("api rejected the token, invalidating and retrying once")
		if errInvalidate := c.tokens.Invalidate(ctx); errInvalidate != nil {
			return gjson.Result{}, errInvalidate
		}
		resp, err = c.send(ctx, method, endpoint, query, body)
		if err != nil {
			return gjson.Result{}, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return gjson.Result{}, auth.NewAuthError(auth.ErrReauthRequired,
				fmt.Errorf("api rejected a freshly refreshed token"))
		}
	}

	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("api error %d: %s", resp.StatusCode, snippet(payload))
	}

	result := gjson.ParseBytes(payload)
	if status := result.Get("status.code"); status.Exists() && status.Int() != 0 {
		return gjson.Result{}, fmt.Errorf("api status %d: %s",
			status.Int(), result.Get("status.message").String())
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body string) (*http.Response, error) {
	token, err := c.tokens.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := c.baseURL + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	return resp, nil
}

func snippet(payload []byte) string {
	const max = 200
	if len(payload) > max {
		return string(payload[:max]) + "..."
	}
	return string(payload)
}

func baseQuery() url.Values {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("_timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	return query
}

// selectionJSON builds the thermostat selection object the API expects.
func selectionJSON(selectionType, match string, includes ...string) string {
	s, _ := sjson.Set("{}", "selection.selectionType", selectionType)
	s, _ = sjson.Set(s, "selection.selectionMatch", match)
	for _, include := range includes {
		s, _ = sjson.Set(s, "selection."+include, true)
	}
	return s
}

// ThermostatID resolves the thermostat to operate on: the identifier cached
// with the token when present, otherwise the first registered thermostat,
// which is then cached for later invocations.
func (c *Client) ThermostatID(ctx context.Context) (string, error) {
	token, err := c.tokens.AcquireToken(ctx)
	if err != nil {
		return "", err
	}
	if token.ThermostatID != "" {
		return token.ThermostatID, nil
	}

	query := baseQuery()
	query.Set("json", selectionJSON("registered", ""))
	result, err := c.do(ctx, http.MethodGet, "/1/thermostat", query, "")
	if err != nil {
		return "", err
	}

	id := result.Get("thermostatList.0.identifier").String()
	if id == "" {
		return "", fmt.Errorf("no registered thermostats found")
	}
	if err = c.tokens.RememberThermostat(ctx, id); err != nil {
		log.WithField("error", err).Warn("could not cache thermostat id")
	}
	return id, nil
}

// Thermostat fetches one thermostat with the requested include flags
// (includeRuntime, includeSettings, ...) and returns its JSON object.
func (c *Client) Thermostat(ctx context.Context, includes ...string) (gjson.Result, error) {
	id, err := c.ThermostatID(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	query := baseQuery()
	query.Set("json", selectionJSON("thermostats", id, includes...))
	result, err := c.do(ctx, http.MethodGet, "/1/thermostat", query, "")
	if err != nil {
		return gjson.Result{}, err
	}
	thermostat := result.Get("thermostatList.0")
	if !thermostat.Exists() {
		return gjson.Result{}, fmt.Errorf("thermostat %s not in response", id)
	}
	return thermostat, nil
}

func (c *Client) update(ctx context.Context, body string) error {
	query := url.Values{}
	query.Set("format", "json")
	_, err := c.do(ctx, http.MethodPost, "/1/thermostat", query, body)
	return err
}

// SetHoldTemp places a temperature hold. Temperatures are in tenths of a
// degree Fahrenheit, the API's wire unit.
func (c *Client) SetHoldTemp(ctx context.Context, heatTenths, coolTenths int, holdType string) error {
	id, err := c.ThermostatID(ctx)
	if err != nil {
		return err
	}
	body, _ := sjson.Set("{}", "selection.selectionType", "thermostats")
	body, _ = sjson.Set(body, "selection.selectionMatch", id)
	body, _ = sjson.Set(body, "functions.0.type", "setHold")
	body, _ = sjson.Set(body, "functions.0.params.holdType", holdType)
	body, _ = sjson.Set(body, "functions.0.params.heatHoldTemp", heatTenths)
	body, _ = sjson.Set(body, "functions.0.params.coolHoldTemp", coolTenths)
	return c.update(ctx, body)
}

// SetClimateHold places a comfort-setting hold (home/away/sleep).
func (c *Client) SetClimateHold(ctx context.Context, climate, holdType string) error {
	id, err := c.ThermostatID(ctx)
	if err != nil {
		return err
	}
	body, _ := sjson.Set("{}", "selection.selectionType", "thermostats")
	body, _ = sjson.Set(body, "selection.selectionMatch", id)
	body, _ = sjson.Set(body, "functions.0.type", "setHold")
	body, _ = sjson.Set(body, "functions.0.params.holdType", holdType)
	body, _ = sjson.Set(body, "functions.0.params.holdClimateRef", climate)
	return c.update(ctx, body)
}

// SetMode changes the HVAC mode (heat/cool/auto/off/auxHeatOnly).
func (c *Client) SetMode(ctx context.Context, mode string) error {
	id, err := c.ThermostatID(ctx)
	if err != nil {
		return err
	}
	body, _ := sjson.Set("{}", "selection.selectionType", "thermostats")
	body, _ = sjson.Set(body, "selection.selectionMatch", id)
	body, _ = sjson.Set(body, "thermostat.settings.hvacMode", mode)
	return c.update(ctx, body)
}

// ResumeProgram drops any active hold and returns to the schedule.
func (c *Client) ResumeProgram(ctx context.Context) error {
	id, err := c.ThermostatID(ctx)
	if err != nil {
		return err
	}
	body, _ := sjson.Set("{}", "selection.selectionType", "thermostats")
	body, _ = sjson.Set(body, "selection.selectionMatch", id)
	body, _ = sjson.Set(body, "functions.0.type", "resumeProgram")
	body, _ = sjson.Set(body, "functions.0.params.resumeAll", true)
	return c.update(ctx, body)
}

// Raw issues an arbitrary API call for debugging.
func (c *Client) Raw(ctx context.Context, endpoint, jsonParam, body string, post bool) (string, error) {
	query := baseQuery()
	if jsonParam != "" {
		query.Set("json", jsonParam)
	}
	method := http.MethodGet
	if post {
		method = http.MethodPost
	}
	result, err := c.do(ctx, method, endpoint, query, body)
	if err != nil {
		return "", err
	}
	return result.Raw, nil
}
