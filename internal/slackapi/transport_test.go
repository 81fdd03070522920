package slackapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	hc := withLogging(srv.Client(), zerolog.New(&buf))

	resp, err := hc.Post(srv.URL+"/api/users.list", "application/x-www-form-urlencoded", bytes.NewBufferString("token=xoxb-secret"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Contains(t, buf.String(), `"path":"/api/users.list"`)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.NotContains(t, buf.String(), "xoxb-secret")
}

func TestWithLoggingKeepsClientSettings(t *testing.T) {
	base := &http.Client{Timeout: 5}
	hc := withLogging(base, zerolog.Nop())

	assert.Equal(t, base.Timeout, hc.Timeout)
	assert.Nil(t, base.Transport, "the caller's client is left untouched")
	assert.NotNil(t, hc.Transport)
}
