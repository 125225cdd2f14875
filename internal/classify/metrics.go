package classify

import "github.com/prometheus/client_golang/prometheus"

var (
	devicesClassifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhcplens_devices_classified_total",
			Help: "Devices classified, labeled by classification method.",
		},
		[]string{"method"},
	)
	deviceErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dhcplens_device_errors_total",
			Help: "Devices dropped because classification failed unexpectedly.",
		},
	)
)

func init() {
	prometheus.MustRegister(devicesClassifiedTotal)
	prometheus.MustRegister(deviceErrorsTotal)
}
