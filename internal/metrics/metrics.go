package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiofetch",
			Name:      "request_steps_total",
			Help:      "Count of state machine steps executed by request drivers.",
		},
		[]string{"step"},
	)

	RequestsTerminal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiofetch",
			Name:      "requests_terminal_total",
			Help:      "Track requests that reached a terminal status.",
		},
		[]string{"status"},
	)

	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "radiofetch",
			Name:      "active_requests",
			Help:      "Number of in-flight request drivers.",
		},
	)

	SearchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiofetch",
			Name:      "search_errors_total",
			Help:      "Errors from tracker search operations.",
		},
		[]string{"op"},
	)

	TransmissionRPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiofetch",
			Name:      "transmission_rpc_errors_total",
			Help:      "Errors from transmission JSON-RPC calls.",
		},
		[]string{"method"},
	)

	TransmissionRPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "radiofetch",
			Name:      "transmission_rpc_latency_seconds",
			Help:      "Latency of transmission JSON-RPC calls.",
		},
		[]string{"method"},
	)

	RadioManagerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radiofetch",
			Name:      "radio_manager_errors_total",
			Help:      "Errors from radio-manager API calls.",
		},
		[]string{"op"},
	)
)

// Register registers the radiofetch metrics into the default registry.
func Register() {
	prometheus.MustRegister(
		RequestSteps,
		RequestsTerminal,
		ActiveRequests,
		SearchErrors,
		TransmissionRPCErrors,
		TransmissionRPCLatency,
		RadioManagerErrors,
	)
}
