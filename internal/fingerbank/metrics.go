package fingerbank

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess     = "success"
	outcomeFailed      = "failed"
	outcomeRateLimited = "rate_limited"
	outcomeAuthFailed  = "auth_failed"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dhcplens_fingerbank_requests_total",
		Help: "Fingerbank API requests by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}
