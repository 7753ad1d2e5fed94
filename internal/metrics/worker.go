package metrics

import "time"

// JobCompleted records a successful sweep.
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a failed sweep.
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// Purged records n expired items of kind removed in a sweep.
func Purged(kind string, n int) {
	if n > 0 {
		ItemsPurged.WithLabelValues(kind).Add(float64(n))
	}
}
