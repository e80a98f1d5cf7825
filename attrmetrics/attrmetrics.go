// Package attrmetrics exports attrbucket cast and change events as
// Prometheus metrics.
package attrmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/andreyvit/attrbucket"
)

const namespace = "attrbucket"

// Collector implements attrbucket.Observer.
type Collector struct {
	CastsTotal   *prometheus.CounterVec
	ChangesTotal *prometheus.CounterVec
}

var _ attrbucket.Observer = (*Collector)(nil)

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		CastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "casts_total",
				Help:      "Total number of bucketed attribute writes by declared type and cast outcome",
			},
			[]string{"record", "attr_type", "outcome"},
		),
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_total",
				Help:      "Total number of bucket column change notifications",
			},
			[]string{"record", "column"},
		),
	}
}

func (c *Collector) ObserveCast(record string, def attrbucket.AttrDef, outcome attrbucket.CastOutcome) {
	typ := def.Type.String()
	if def.IsCustom() {
		typ = "custom"
	}
	c.CastsTotal.WithLabelValues(record, typ, outcome.String()).Inc()
}

func (c *Collector) ObserveChange(record, column string) {
	c.ChangesTotal.WithLabelValues(record, column).Inc()
}
