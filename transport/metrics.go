package transport

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	datagramsReceived prometheus.Counter
	bytesReceived     prometheus.Counter
	receiveErrors     prometheus.Counter
	datagramsSent     prometheus.Counter
	sendErrors        prometheus.Counter
}

// newMetrics returns nil when no registerer is given, every call site checks it.
func newMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osc_console",
			Subsystem: "transport",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		datagramsReceived: counter("datagrams_received_total", "Total UDP datagrams received"),
		bytesReceived:     counter("bytes_received_total", "Total bytes received from UDP"),
		receiveErrors:     counter("receive_errors_total", "Socket read errors encountered"),
		datagramsSent:     counter("datagrams_sent_total", "Total UDP datagrams sent"),
		sendErrors:        counter("send_errors_total", "Socket write errors encountered"),
	}
	reg.MustRegister(m.datagramsReceived, m.bytesReceived, m.receiveErrors, m.datagramsSent, m.sendErrors)
	return m
}
