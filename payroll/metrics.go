package payroll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sourceSingle = "single"
	sourceBatch  = "batch"
)

var (
	recordsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "records",
		Name:      "generated_total",
		Help:      "Payroll records persisted, by whether they came from a single payslip or a batch run.",
	}, []string{"source"})

	recordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "records",
		Name:      "skipped_total",
		Help:      "Payroll records computed but not saved because the period already had one.",
	}, []string{"source"})

	batchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "batch",
		Name:      "runs_total",
		Help:      "Batch payroll runs broken down by result.",
	}, []string{"result"})
)
