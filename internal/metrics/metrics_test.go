package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	m.ObserveUpdate("command")
	m.ObserveUpdate("command")
	m.ObserveReply(nil)
	m.ObserveReply(errors.New("boom"))
	m.ObserveWebViewPayload("json")
	m.ObserveQuoteRequest()
	m.ObserveDocumentSaved("catalog", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webViewPayloads.WithLabelValues("json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quoteRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsSaved.WithLabelValues("catalog", "ok")))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestTrackActiveChats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	chats := 3
	m.TrackActiveChats(func() int { return chats })

	expected := `
# HELP test_bot_throttled_chats Chats currently holding a send rate limiter.
# TYPE test_bot_throttled_chats gauge
test_bot_throttled_chats 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_bot_throttled_chats"))

	chats = 1
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(strings.Replace(expected, " 3\n", " 1\n", 1)), "test_bot_throttled_chats"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpdate("command")
		m.ObserveReply(nil)
		m.ObserveWebViewPayload("text")
		m.ObserveQuoteRequest()
		m.ObserveDocumentSaved("config", nil)
		m.TrackActiveChats(func() int { return 0 })
	})
}
