package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	c := NewMetricsCollector(prometheus.NewRegistry())

	c.RecordHTTPRequest("GET", "/posts/:id/comments", 200, 5*time.Millisecond, 512)
	c.RecordHTTPRequest("GET", "/posts/:id/comments", 204, time.Millisecond, 0)
	c.RecordHTTPRequest("POST", "/posts/:id/comments", 400, time.Millisecond, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/posts/:id/comments", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/posts/:id/comments", "4xx")))
}

func TestRecordStoreOp(t *testing.T) {
	c := NewMetricsCollector(prometheus.NewRegistry())

	c.RecordStoreOp("insert", "comments", time.Millisecond, true)
	c.RecordStoreOp("insert", "comments", time.Millisecond, false)
	c.RecordStoreOp("insert", "comments", time.Millisecond, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeOpTotal.WithLabelValues("insert", "comments", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.storeOpTotal.WithLabelValues("insert", "comments", "error")))
}

func TestCommentCounters(t *testing.T) {
	c := NewMetricsCollector(prometheus.NewRegistry())

	c.CommentCreated()
	c.CommentReaction("like", "set")
	c.CommentReaction("like", "set")
	c.CommentStatusChanged("hidden")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.commentsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commentReactions.WithLabelValues("like", "set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commentStatusChange.WithLabelValues("hidden")))
}

func TestGetStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", getStatusCategory(201))
	assert.Equal(t, "3xx", getStatusCategory(304))
	assert.Equal(t, "5xx", getStatusCategory(503))
	assert.Equal(t, "unknown", getStatusCategory(0))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *MetricsCollector

	assert.NotPanics(t, func() {
		c.CommentCreated()
		c.CommentEdited()
		c.CommentReaction("dislike", "remove")
		c.CommentReported()
		c.CommentStatusChanged("deleted")
	})
}
