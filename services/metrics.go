package services

import (
	"context"
	"sync"
	"time"
)

const metricsTimeout = 5 * time.Second

// metricsSink sends metrics off the request path with their own deadline,
// so a slow metrics backend never eats into the caller's context.
type metricsSink struct {
	recorder MetricsRecorder
	wg       sync.WaitGroup
}

func newMetricsSink(recorder MetricsRecorder) *metricsSink {
	if recorder == nil {
		recorder = noopMetrics{}
	}
	return &metricsSink{recorder: recorder}
}

func (s *metricsSink) count(metricName string, dimensions map[string]string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
		defer cancel()
		_ = s.recorder.RecordCount(ctx, metricName, dimensions)
	}()
}

// wait blocks until every pending metric has been sent.
func (s *metricsSink) wait() {
	s.wg.Wait()
}
