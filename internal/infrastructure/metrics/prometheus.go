package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "momentum"

// Collector records trade lifecycle metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	signals *prometheus.CounterVec
	orders  *prometheus.CounterVec
	exits   *prometheus.CounterVec
	tracked prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Webhook signals by outcome (success, simulated, rejected, invalid, failed)",
		}, []string{"status"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Broker order placements by result",
		}, []string{"result"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Position exits by reason and result",
		}, []string{"reason", "result"}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_trades",
			Help:      "Trades currently watched by the trailing stop engine",
		}),
	}

	c.registry.MustRegister(
		c.signals,
		c.orders,
		c.exits,
		c.tracked,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveSignal(status string) {
	c.signals.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveOrder(result string) {
	c.orders.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveExit(reason, result string) {
	c.exits.WithLabelValues(reason, result).Inc()
}

func (c *Collector) SetTrackedTrades(n int) {
	c.tracked.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
