package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobRunsTotal, jobLastRun, jobMisfiresTotal, jobCoalescedTotal, catchUpRunsTotal)
}

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_job_runs_total",
		Help: "Completed job executions by job id and result ('ok', 'error').",
	},
	[]string{"job", "result"},
)

var jobLastRun = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "scheduler_job_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run per job id.",
	},
	[]string{"job"},
)

var jobMisfiresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_job_misfires_total",
		Help: "Triggers skipped because they fired outside the misfire grace window.",
	},
	[]string{"job"},
)

var jobCoalescedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_job_coalesced_total",
		Help: "Triggers dropped because an instance of the job was still running.",
	},
	[]string{"job"},
)

var catchUpRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_catchup_runs_total",
		Help: "Catch-up recovery executions by rule name.",
	},
	[]string{"rule"},
)

func IncJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRunsTotal.WithLabelValues(norm(job), result).Inc()
	jobLastRun.WithLabelValues(norm(job)).Set(float64(time.Now().Unix()))
}

func IncJobMisfire(job string)   { jobMisfiresTotal.WithLabelValues(norm(job)).Inc() }
func IncJobCoalesced(job string) { jobCoalescedTotal.WithLabelValues(norm(job)).Inc() }
func IncCatchUpRun(rule string)  { catchUpRunsTotal.WithLabelValues(norm(rule)).Inc() }
