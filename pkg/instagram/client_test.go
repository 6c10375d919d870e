package instagram

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"igextract/pkg/config"
	"igextract/pkg/errors"
	"igextract/pkg/logger"
	"igextract/pkg/proxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

func newServerClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.Instagram.BaseURL = server.URL
	log := logger.NewTestLogger()
	return NewClient(cfg, nil, log), log
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil, nil, nil)

	assert.Equal(t, BaseURL, client.baseURL)
	assert.Equal(t, DefaultDocID, client.docID)
	assert.Equal(t, 10*time.Second, client.profileTimeout)
	assert.Equal(t, 15*time.Second, client.pageTimeout)
	assert.Equal(t, "936619743392459", client.apiHeaders["X-IG-App-ID"])
	assert.Equal(t, "document", client.docHeaders["Sec-Fetch-Dest"])
}

func TestFetchProfileInfo(t *testing.T) {
	client, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProfileEndpoint, r.URL.Path)
		assert.Equal(t, "natgeo", r.URL.Query().Get("username"))
		assert.Equal(t, "en", r.URL.Query().Get("hl"))
		assert.Equal(t, "936619743392459", r.Header.Get("X-IG-App-ID"))
		assert.Equal(t, "129477", r.Header.Get("X-ASBD-ID"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "cors", r.Header.Get("Sec-Fetch-Mode"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Chrome/131")
		assert.Contains(t, r.Header.Get("Referer"), "/natgeo/")
		w.Write([]byte(`{"status":"ok"}`))
	})

	body, err := client.FetchProfileInfo(context.Background(), "natgeo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestFetchTimelinePage(t *testing.T) {
	client, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TimelineEndpoint, r.URL.Path)
		assert.Equal(t, DefaultDocID, r.URL.Query().Get("doc_id"))
		assert.Contains(t, r.URL.Query().Get("variables"), `"after":"CUR"`)
		w.Write([]byte(`{"data":{}}`))
	})

	body, err := client.FetchTimelinePage(context.Background(), NewTimelineVariables("natgeo", "CUR"))
	require.NoError(t, err)
	assert.Equal(t, `{"data":{}}`, string(body))
}

func TestFetchProfilePage(t *testing.T) {
	client, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/natgeo/", r.URL.Path)
		assert.Equal(t, "navigate", r.Header.Get("Sec-Fetch-Mode"))
		assert.Empty(t, r.Header.Get("X-IG-App-ID"))
		w.Write([]byte("<html></html>"))
	})

	body, err := client.FetchProfilePage(context.Background(), "natgeo")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status       int
		expectedType errors.ErrorType
	}{
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusInternalServerError, errors.ErrorTypeTransient},
		{http.StatusServiceUnavailable, errors.ErrorTypeTransient},
		{http.StatusTeapot, errors.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, log := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FetchProfileInfo(context.Background(), "natgeo")

			var igErr *errors.Error
			require.ErrorAs(t, err, &igErr)
			assert.Equal(t, tt.expectedType, igErr.Type)
			assert.Equal(t, tt.status, igErr.Code)
			assert.NotEmpty(t, log.GetMessages())
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	client := NewClient(config.DefaultConfig(), nil, logger.NewTestLogger())
	client.newTransport = func(*proxy.Endpoint, time.Duration) (http.RoundTripper, error) {
		return &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		}}, nil
	}

	_, err := client.FetchProfileInfo(context.Background(), "natgeo")

	assert.True(t, errors.IsType(err, errors.ErrorTypeTransient))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestProxyRotationAndTransportCache(t *testing.T) {
	endpoints, err := proxy.ParseEndpoints([]string{"http://p1:8080", "http://p2:8080"})
	require.NoError(t, err)

	client := NewClient(config.DefaultConfig(), proxy.NewRotator(endpoints), logger.NewNopLogger())

	var built []string
	var used []string
	client.newTransport = func(e *proxy.Endpoint, _ time.Duration) (http.RoundTripper, error) {
		name := proxyName(e)
		built = append(built, name)
		return &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			used = append(used, name)
			return newResponse(req, http.StatusOK, `{}`), nil
		}}, nil
	}

	for i := 0; i < 4; i++ {
		_, err := client.FetchProfileInfo(context.Background(), "natgeo")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"http://p1:8080", "http://p2:8080"}, built)
	assert.Equal(t, []string{"http://p1:8080", "http://p2:8080", "http://p1:8080", "http://p2:8080"}, used)
}

func TestTransportCacheKeepsCredentials(t *testing.T) {
	endpoints, err := proxy.ParseEndpoints([]string{"http://user:pw1@gw:8000", "http://user:pw2@gw:8000"})
	require.NoError(t, err)

	client := NewClient(config.DefaultConfig(), proxy.NewRotator(endpoints), logger.NewNopLogger())

	var built []string
	var used []string
	client.newTransport = func(e *proxy.Endpoint, _ time.Duration) (http.RoundTripper, error) {
		password, _ := e.URL.User.Password()
		built = append(built, password)
		return &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			used = append(used, password)
			return newResponse(req, http.StatusOK, `{}`), nil
		}}, nil
	}

	for i := 0; i < 4; i++ {
		_, err := client.FetchProfileInfo(context.Background(), "natgeo")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"pw1", "pw2"}, built)
	assert.Equal(t, []string{"pw1", "pw2", "pw1", "pw2"}, used)
	assert.Equal(t, proxyName(&endpoints[0]), proxyName(&endpoints[1]), "log names stay redacted")
}

func TestConfiguredHeaders(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Instagram.Headers = map[string]string{"X-IG-WWW-Claim": "hmac.custom", "Accept-Language": "de-DE"}
	client := NewClient(cfg, nil, logger.NewNopLogger())

	var got http.Header
	client.newTransport = func(*proxy.Endpoint, time.Duration) (http.RoundTripper, error) {
		return &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			got = req.Header.Clone()
			return newResponse(req, http.StatusOK, `{}`), nil
		}}, nil
	}

	_, err := client.FetchProfileInfo(context.Background(), "natgeo")
	require.NoError(t, err)
	assert.Equal(t, "hmac.custom", got.Get("X-IG-WWW-Claim"))
	assert.Equal(t, "de-DE", got.Get("Accept-Language"))

	_, err = client.FetchProfilePage(context.Background(), "natgeo")
	require.NoError(t, err)
	assert.NotEqual(t, "hmac.custom", got.Get("X-IG-WWW-Claim"), "document requests use their own header set")
}

func TestCancelledContext(t *testing.T) {
	client, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchProfileInfo(ctx, "natgeo")
	assert.Error(t, err)
}

func TestRateLimiterPacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Instagram.BaseURL = server.URL
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.BurstSize = 1
	client := NewClient(cfg, nil, nil)

	_, err := client.FetchProfileInfo(context.Background(), "natgeo")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.FetchProfileInfo(ctx, "natgeo")
	assert.Error(t, err)
}
