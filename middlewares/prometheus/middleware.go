package prometheus

import (
	"context"
	"time"

	"github.com/coderi421/relm"
	"github.com/prometheus/client_golang/prometheus"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
}

func (m MiddlewareBuilder) Build() relm.Middleware {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      m.Name,
		Subsystem: m.Subsystem,
		Namespace: m.Namespace,
		Help:      m.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,  // 99 线
			0.999: 0.0001, // 999 线
		},
	}, []string{"type", "table"})

	prometheus.MustRegister(vector)

	return func(next relm.Handler) relm.Handler {
		return func(ctx context.Context, qc *relm.QueryContext) *relm.QueryResult {
			startTime := time.Now()
			defer func() {
				duration := time.Since(startTime).Milliseconds()
				table := "unknown"
				if qc.Model != nil {
					table = qc.Model.Name()
				}
				vector.WithLabelValues(qc.Type, table).Observe(float64(duration))
			}()
			return next(ctx, qc)
		}
	}
}
