package expo_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamyfin/go-push-service/internal/platform/expo"
	"github.com/streamyfin/go-push-service/pkg/push"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, endpoint string, maxBatch int) *expo.Client {
	t.Helper()
	return expo.NewClient(expo.Config{Endpoint: endpoint, MaxBatchSize: maxBatch}, newTestLogger())
}

func TestSend_WireContract(t *testing.T) {
	ctx := context.Background()

	var gotMethod, gotAccept, gotEncoding, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAccept = r.Header.Get("Accept")
		gotEncoding = r.Header.Get("Accept-Encoding")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, 0)
	resp, err := client.Send(ctx, []push.Envelope{
		{To: []string{"ExponentPushToken[abc]"}, Title: "Hi", Body: "There", Data: map[string]any{"k": "v"}},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ok", resp.Data[0].Status)
	assert.Equal(t, "ticket-1", resp.Data[0].ID)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "gzip, deflate", gotEncoding)
	assert.Equal(t, "application/json; charset=utf-8", gotContentType)

	// The body is the exact gateway schema: a JSON array of envelopes.
	assert.JSONEq(t,
		`[{"to":["ExponentPushToken[abc]"],"title":"Hi","body":"There","data":{"k":"v"}}]`,
		string(gotBody),
	)
}

func TestSend_RoundTripPreservesContent(t *testing.T) {
	ctx := context.Background()

	// Test double that echoes the parsed request back inside the response,
	// verifying nothing is lost in the encode/decode cycle.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelopes []push.Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelopes))

		resp := push.DeliveryResponse{}
		for _, env := range envelopes {
			resp.Data = append(resp.Data, push.PushTicket{
				Status: "ok",
				Details: map[string]any{
					"title": env.Title,
					"body":  env.Body,
					"to":    env.To,
				},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	sent := push.Envelope{
		To:    []string{"tok-1", "tok-2", "tok-3"},
		Title: "Movie added",
		Body:  "A new movie is ready to watch",
	}

	client := newClient(t, server.URL, 0)
	resp, err := client.Send(ctx, []push.Envelope{sent})

	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	echoed := resp.Data[0].Details
	assert.Equal(t, sent.Title, echoed["title"])
	assert.Equal(t, sent.Body, echoed["body"])

	// Destination set survives, order aside.
	var echoedTo []string
	for _, v := range echoed["to"].([]any) {
		echoedTo = append(echoedTo, v.(string))
	}
	assert.ElementsMatch(t, sent.To, echoedTo)
}

func TestSend_GzipResponse(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`{"data":[{"status":"ok","id":"gz-1"}]}`))
		_ = gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := newClient(t, server.URL, 0)
	resp, err := client.Send(ctx, []push.Envelope{{To: []string{"tok"}, Title: "t"}})

	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "gz-1", resp.Data[0].ID)
}

func TestSend_CorruptGzipResponse(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`{"data":[{"status":"ok","id":"gz-1"}]}`))
		_ = gz.Close()

		// Flip a byte in the deflate stream so decompression fails.
		raw := buf.Bytes()
		raw[len(raw)/2] ^= 0xff

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	client := newClient(t, server.URL, 0)
	resp, err := client.Send(ctx, []push.Envelope{{To: []string{"tok"}, Title: "t"}})

	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestSend_Non2xxIsDeliveryError(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newClient(t, server.URL, 0)
	_, err := client.Send(ctx, []push.Envelope{{To: []string{"tok"}, Title: "t"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSend_MalformedBodyIsDeliveryError(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	client := newClient(t, server.URL, 0)
	_, err := client.Send(ctx, []push.Envelope{{To: []string{"tok"}, Title: "t"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding gateway response")
}

func TestSend_TransportFailure(t *testing.T) {
	ctx := context.Background()

	// Nothing listening here.
	client := newClient(t, "http://127.0.0.1:1", 0)
	_, err := client.Send(ctx, []push.Envelope{{To: []string{"tok"}, Title: "t"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway request failed")
}

func TestSend_BatchSizeLimit(t *testing.T) {
	ctx := context.Background()
	called := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := newClient(t, server.URL, 2)
	_, err := client.Send(ctx, []push.Envelope{
		{To: []string{"a"}}, {To: []string{"b"}}, {To: []string{"c"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds configured limit")
	assert.False(t, called, "oversized batches must be rejected before the network call")
}
