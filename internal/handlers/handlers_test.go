package handlers_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfries/hooky/internal/handlers"
	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/server"
	"github.com/davidfries/hooky/internal/service"
	"github.com/davidfries/hooky/internal/store"
	"github.com/davidfries/hooky/internal/stream"
)

type endpointResponse struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
	RequestCount int       `json:"request_count"`
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	svc := service.New(st, stream.NewBroker(), logging.Default())
	h := handlers.New(svc, logging.Default(), "http://hooky.test", 1<<20, store.ModeMemory)

	srv := httptest.NewServer(server.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func createEndpoint(t *testing.T, srv *httptest.Server, ttlSeconds int64) endpointResponse {
	t.Helper()
	body := fmt.Sprintf(`{"ttl_seconds": %d}`, ttlSeconds)
	resp, err := http.Post(srv.URL+"/api/endpoints", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ep endpointResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ep))
	return ep
}

func TestCreateEndpoint(t *testing.T) {
	srv := setupServer(t)

	ep := createEndpoint(t, srv, 7200)
	assert.NotEmpty(t, ep.ID)
	assert.Equal(t, "http://hooky.test/hook/"+ep.ID, ep.URL)
	assert.InDelta(t, 7200, ep.ExpiresIn, 2)
	assert.Equal(t, 0, ep.RequestCount)
}

func TestCreateEndpointEmptyBody(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/endpoints", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ep endpointResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ep))
	assert.InDelta(t, service.DefaultTTL.Seconds(), float64(ep.ExpiresIn), 2)
}

func TestListEndpoints(t *testing.T) {
	srv := setupServer(t)

	first := createEndpoint(t, srv, 3600)
	second := createEndpoint(t, srv, 3600)

	resp, err := http.Get(srv.URL + "/api/endpoints")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var endpoints []endpointResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&endpoints))
	require.Len(t, endpoints, 2)

	ids := []string{endpoints[0].ID, endpoints[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestGetEndpointNotFound(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/endpoints/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteEndpoint(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 3600)

	del := func() map[string]bool {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/endpoints/"+ep.ID, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.True(t, del()["removed"])
	assert.False(t, del()["removed"])
}

func TestCapture(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 3600)

	payload := `{"event":"payment.completed","amount":1999}`
	req, err := http.NewRequest(http.MethodPost,
		srv.URL+"/hook/"+ep.ID+"?source=stripe&tag=a&tag=b",
		bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", "sha256=abc")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, true, ack["ok"])
	assert.NotEmpty(t, ack["id"])

	listResp, err := http.Get(srv.URL + "/api/endpoints/" + ep.ID + "/requests")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var requests []struct {
		ID      string         `json:"id"`
		Method  string         `json:"method"`
		Path    string         `json:"path"`
		Query   map[string]any `json:"query"`
		Headers map[string]any `json:"headers"`
		Body    any            `json:"body"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&requests))
	require.Len(t, requests, 1)

	got := requests[0]
	assert.Equal(t, ack["id"], got.ID)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "stripe", got.Query["source"])
	// repeated keys stay a list
	assert.Equal(t, []any{"a", "b"}, got.Query["tag"])
	assert.Equal(t, "sha256=abc", got.Headers["X-Signature"])

	body, ok := got.Body.(map[string]any)
	require.True(t, ok, "JSON payload should decode to an object")
	assert.Equal(t, "payment.completed", body["event"])
	assert.Equal(t, float64(1999), body["amount"])
}

func TestCaptureNonJSONBody(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 3600)

	resp, err := http.Post(srv.URL+"/hook/"+ep.ID, "text/plain",
		strings.NewReader("plain text payload"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(srv.URL + "/api/endpoints/" + ep.ID + "/requests")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var requests []struct {
		Body any `json:"body"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "plain text payload", requests[0].Body)
}

func TestCaptureAnyMethod(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 3600)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req, err := http.NewRequest(method, srv.URL+"/hook/"+ep.ID, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, method)
	}
}

func TestCaptureUnknownEndpoint(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Post(srv.URL+"/hook/nope", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCaptureExpiredEndpoint(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 1)

	time.Sleep(1100 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/hook/"+ep.ID, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestStream(t *testing.T) {
	srv := setupServer(t)
	ep := createEndpoint(t, srv, 3600)

	resp, err := http.Get(srv.URL + "/api/endpoints/" + ep.ID + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	captureResp, err := http.Post(srv.URL+"/hook/"+ep.ID, "application/json",
		strings.NewReader(`{"n":1}`))
	require.NoError(t, err)
	captureResp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, "event: request", eventLine)

	var streamed struct {
		EndpointID string `json:"endpoint_id"`
		Method     string `json:"method"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &streamed))
	assert.Equal(t, ep.ID, streamed.EndpointID)
	assert.Equal(t, "POST", streamed.Method)
}

func TestStreamUnknownEndpoint(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/endpoints/nope/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "memory", ready["backend"])
}

func TestRequestIDHeader(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
