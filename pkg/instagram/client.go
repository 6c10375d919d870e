package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"igextract/pkg/config"
	"igextract/pkg/errors"
	"igextract/pkg/logger"
	"igextract/pkg/proxy"
	"igextract/pkg/ratelimit"
)

// maxBodySize bounds how much of a response body is read
const maxBodySize = 16 << 20

// Client fetches raw bodies from Instagram. Each request takes the next
// proxy from the rotator; transports are built once per proxy.
type Client struct {
	baseURL        string
	docID          string
	apiHeaders     map[string]string
	docHeaders     map[string]string
	profileTimeout time.Duration
	pageTimeout    time.Duration

	rotator      *proxy.Rotator
	transports   map[string]http.RoundTripper
	newTransport func(e *proxy.Endpoint, timeout time.Duration) (http.RoundTripper, error)

	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewClient creates a client from the instagram and fetch config sections
func NewClient(cfg *config.Config, rotator *proxy.Rotator, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	baseURL := cfg.Instagram.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	docID := cfg.Instagram.DocID
	if docID == "" {
		docID = DefaultDocID
	}

	c := &Client{
		baseURL:        baseURL,
		docID:          docID,
		apiHeaders:     apiHeaders(cfg.Instagram),
		docHeaders:     documentHeaders(cfg.Instagram),
		profileTimeout: orDefault(cfg.Fetch.ProfileTimeout, 10*time.Second),
		pageTimeout:    orDefault(cfg.Fetch.PageTimeout, 15*time.Second),
		rotator:        rotator,
		transports:     make(map[string]http.RoundTripper),
		newTransport:   (*proxy.Endpoint).Transport,
		limiter:        ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		logger:         log,
	}
	for key, value := range cfg.Instagram.Headers {
		c.SetHeader(key, value)
	}
	return c
}

func apiHeaders(cfg config.InstagramConfig) map[string]string {
	return map[string]string{
		"User-Agent":       cfg.UserAgent,
		"Accept":           "*/*",
		"Accept-Language":  "en-US,en;q=0.9",
		"X-IG-App-ID":      cfg.AppID,
		"X-ASBD-ID":        "129477",
		"X-IG-WWW-Claim":   "0",
		"X-Requested-With": "XMLHttpRequest",
		"Sec-Fetch-Dest":   "empty",
		"Sec-Fetch-Mode":   "cors",
		"Sec-Fetch-Site":   "same-origin",
	}
}

func documentHeaders(cfg config.InstagramConfig) map[string]string {
	return map[string]string{
		"User-Agent":                cfg.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Cache-Control":             "max-age=0",
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// SetHeader sets a header sent with API requests
func (c *Client) SetHeader(key, value string) {
	c.apiHeaders[key] = value
}

// FetchProfileInfo fetches the web_profile_info body for username
func (c *Client) FetchProfileInfo(ctx context.Context, username string) ([]byte, error) {
	headers := map[string]string{"Referer": GetUserProfileURL(c.baseURL, username)}
	return c.get(ctx, GetProfileURL(c.baseURL, username), c.apiHeaders, headers, c.profileTimeout)
}

// FetchTimelinePage fetches one GraphQL timeline page
func (c *Client) FetchTimelinePage(ctx context.Context, vars TimelineVariables) ([]byte, error) {
	url, err := GetTimelineURL(c.baseURL, c.docID, vars)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformed, "failed to build timeline request")
	}
	headers := map[string]string{"Referer": GetUserProfileURL(c.baseURL, vars.Username)}
	return c.get(ctx, url, c.apiHeaders, headers, c.pageTimeout)
}

// FetchProfilePage fetches the rendered HTML profile page
func (c *Client) FetchProfilePage(ctx context.Context, username string) ([]byte, error) {
	return c.get(ctx, GetUserProfileURL(c.baseURL, username), c.docHeaders, nil, c.pageTimeout)
}

func (c *Client) get(ctx context.Context, url string, base, extra map[string]string, timeout time.Duration) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformed, "failed to create request")
	}
	for key, value := range base {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	endpoint := c.rotator.Next()
	transport, err := c.transportFor(endpoint, timeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransient, "failed to build proxy transport")
	}

	fields := map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
		"proxy":  proxyName(endpoint),
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", fields)

	resp, err := (&http.Client{Transport: transport}).Do(req)
	fields["duration"] = time.Since(start)
	if err != nil {
		fields["error"] = err.Error()
		c.logger.WarnWithFields("HTTP request failed", fields)
		return nil, &errors.Error{
			Type:    errors.ErrorTypeTransient,
			Message: "network error",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	c.logger.DebugWithFields("HTTP request completed", fields)

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeTransient,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return body, nil
}

func (c *Client) transportFor(e *proxy.Endpoint, timeout time.Duration) (http.RoundTripper, error) {
	key := transportKey(e)
	if rt, ok := c.transports[key]; ok {
		return rt, nil
	}
	rt, err := c.newTransport(e, timeout)
	if err != nil {
		return nil, err
	}
	c.transports[key] = rt
	return rt, nil
}

// transportKey identifies an endpoint including its credentials
func transportKey(e *proxy.Endpoint) string {
	if e == nil {
		return "direct"
	}
	return e.URL.String()
}

// proxyName is the redacted endpoint for log fields
func proxyName(e *proxy.Endpoint) string {
	if e == nil {
		return "direct"
	}
	return e.String()
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return &errors.Error{Type: errors.ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return &errors.Error{Type: errors.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return &errors.Error{Type: errors.ErrorTypeAuth, Message: "login required", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", fields)
		return &errors.Error{Type: errors.ErrorTypeTransient, Message: "server error", Code: resp.StatusCode}
	default:
		c.logger.ErrorWithFields("unexpected API status", fields)
		return &errors.Error{
			Type:    errors.FromStatusCode(resp.StatusCode),
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}
