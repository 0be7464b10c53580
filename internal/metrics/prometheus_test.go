package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusCollectorRecordsConnections(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var active, total float64
	for _, fam := range families {
		switch fam.GetName() {
		case "heyu_connections_active":
			active = metricValue(fam)
		case "heyu_connections_total":
			total = metricValue(fam)
		}
	}
	if active != 1 {
		t.Errorf("expected 1 active connection, got %v", active)
	}
	if total != 2 {
		t.Errorf("expected 2 total connections, got %v", total)
	}
}

func TestPrometheusCollectorSubscriberCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SubscriberAdded()
	c.SubscriberCount(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var gauge float64
	for _, fam := range families {
		if fam.GetName() == "heyu_hub_subscribers_active" {
			gauge = metricValue(fam)
		}
	}
	if gauge != 3 {
		t.Errorf("expected subscriber gauge 3, got %v", gauge)
	}
}

func metricValue(fam *dto.MetricFamily) float64 {
	if len(fam.Metric) == 0 {
		return 0
	}
	m := fam.Metric[0]
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		return 0
	}
}
