package parser

import "github.com/prometheus/client_golang/prometheus"

var (
	linesParsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dhcplens_parser_lines_parsed_total",
		Help: "Total log lines that produced a valid entry.",
	})
	linesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dhcplens_parser_lines_skipped_total",
		Help: "Total log lines no recognizer matched.",
	})
)

func init() {
	prometheus.MustRegister(linesParsedTotal)
	prometheus.MustRegister(linesSkippedTotal)
}
