package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/voxelpilot/cache"
	"github.com/kasuganosora/voxelpilot/cache/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStream(t *testing.T, query string) (cache.PubSub, *bufio.Reader) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ps, err := cache.NewPubSub(cache.CacheConfig{LocalPubSubBuf: 16})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/sse", NewHandler(ps, nil).ServeSSE)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse"+query, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	readUntil(t, br, "event: connected")
	require.Equal(t, []string{"data: {}"}, readUntil(t, br, "data:"))
	return ps, br
}

func readUntil(t *testing.T, br *bufio.Reader, prefix string) []string {
	t.Helper()
	var lines []string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		lines = append(lines, line)
		if strings.HasPrefix(line, prefix) {
			return lines
		}
	}
}

func TestServeSSE_StreamsStatusAndEvents(t *testing.T) {
	ps, br := newStream(t, "")
	ctx := context.Background()

	require.NoError(t, ps.Publish(ctx, feed.ChannelStatus, `{"tick":7}`))
	readUntil(t, br, "event: status")
	data := readUntil(t, br, "data:")
	assert.Equal(t, `data: {"tick":7}`, data[len(data)-1])

	require.NoError(t, ps.Publish(ctx, feed.ChannelEvents, `{"type":"crisis_started"}`))
	readUntil(t, br, "event: event")
	data = readUntil(t, br, "data:")
	assert.Equal(t, `data: {"type":"crisis_started"}`, data[len(data)-1])
}

func TestServeSSE_OnlyEvents(t *testing.T) {
	ps, br := newStream(t, "?only=events")
	ctx := context.Background()

	require.NoError(t, ps.Publish(ctx, feed.ChannelStatus, `{"tick":1}`))
	require.NoError(t, ps.Publish(ctx, feed.ChannelEvents, `{"type":"mission_started"}`))
	lines := readUntil(t, br, "event: ")
	require.Equal(t, "event: event", lines[len(lines)-1])
	data := readUntil(t, br, "data:")
	assert.Equal(t, `data: {"type":"mission_started"}`, data[len(data)-1])
	assert.NotContains(t, strings.Join(append(lines, data...), "\n"), `{"tick":1}`)
}

func TestServeSSE_StatusEvery(t *testing.T) {
	ps, br := newStream(t, "?status_every=1h")
	ctx := context.Background()

	require.NoError(t, ps.Publish(ctx, feed.ChannelStatus, `{"tick":1}`))
	require.NoError(t, ps.Publish(ctx, feed.ChannelStatus, `{"tick":2}`))
	require.NoError(t, ps.Publish(ctx, feed.ChannelEvents, `{"type":"mission_started"}`))

	lines := readUntil(t, br, `data: {"type"`)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, `data: {"tick":1}`)
	assert.NotContains(t, joined, `data: {"tick":2}`)
}

func TestServeSSE_BadInterval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ps, err := cache.NewPubSub(cache.CacheConfig{LocalPubSubBuf: 16})
	require.NoError(t, err)
	r := gin.New()
	r.GET("/sse", NewHandler(ps, nil).ServeSSE)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse?status_every=soon", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "status", eventName(feed.ChannelStatus))
	assert.Equal(t, "event", eventName(feed.ChannelEvents))
}
