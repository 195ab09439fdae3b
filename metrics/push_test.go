package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPush(t *testing.T) {
	var pushed atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		pushed.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	NewCounter("push_test", "metrics", "counter for the push test", []string{"kind"}).
		WithLabelValues("test").Inc()

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Push(ctx, zaptest.NewLogger(t), clock, PushConfig{
			URL:      srv.URL,
			Period:   time.Minute,
			Grouping: map[string]string{"node": "test"},
		})
	}()

	clock.BlockUntil(1)
	require.Zero(t, pushed.Load())
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return pushed.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.True(t, strings.HasSuffix(path.Load().(string), "/job/"+Namespace+"/node/test"))

	cancel()
	<-done
}
