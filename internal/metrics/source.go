package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alp4ka/pagequery"
)

const (
	opFind  = "find"
	opCount = "count"

	outcomeOK    = "ok"
	outcomeError = "error"
)

var (
	dataSourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "datasource_query_duration_seconds",
			Help:      "Duration of data source queries in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source", "op", "outcome"},
	)

	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages served, by paging policy and whether the total was counted",
		},
		[]string{"policy", "counted"},
	)
)

func init() {
	prometheus.MustRegister(dataSourceDuration)
	prometheus.MustRegister(pagesTotal)
}

// Source records the duration and outcome of every query reaching the
// wrapped data source.
type Source[T any] struct {
	next pagequery.DataSource[T]
	name string
}

// InstrumentSource wraps src, labelling its metrics with name.
func InstrumentSource[T any](name string, src pagequery.DataSource[T]) *Source[T] {
	return &Source[T]{
		next: src,
		name: name,
	}
}

// Find - implements pagequery.DataSource.
func (s *Source[T]) Find(ctx context.Context, q pagequery.Query) ([]T, error) {
	start := time.Now()

	rows, err := s.next.Find(ctx, q)
	s.observe(opFind, start, err)

	return rows, err
}

// Count - implements pagequery.DataSource.
func (s *Source[T]) Count(ctx context.Context, q pagequery.Query) (int64, error) {
	start := time.Now()

	total, err := s.next.Count(ctx, q)
	s.observe(opCount, start, err)

	return total, err
}

func (s *Source[T]) observe(op string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}

	dataSourceDuration.WithLabelValues(s.name, op, outcome).Observe(time.Since(start).Seconds())
}

// ObservePage counts a page served under policy.
func ObservePage(policy pagequery.Policy, counted bool) {
	pagesTotal.WithLabelValues(string(policy), strconv.FormatBool(counted)).Inc()
}

var _ pagequery.DataSource[any] = (*Source[any])(nil)
