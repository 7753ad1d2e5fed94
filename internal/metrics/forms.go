package metrics

import (
	"strconv"
	"time"
)

// FileRejected counts a file dropped by the upload control.
func FileRejected(reason string) {
	UploadFilesRejected.WithLabelValues(reason).Inc()
}

// FilesAccepted counts files appended to an upload list.
func FilesAccepted(n int) {
	if n > 0 {
		UploadFilesAccepted.Add(float64(n))
	}
}

// OptionFetch counts one address option lookup.
func OptionFetch(level, result string) {
	OptionFetchesTotal.WithLabelValues(level, result).Inc()
}

// UpstreamCall records one REST API call.
func UpstreamCall(resource, method string, status int, err error, d time.Duration) {
	outcome := "ok"
	switch {
	case err != nil && status == 0:
		outcome = "error"
	case status >= 400:
		outcome = strconv.Itoa(status)
	case err != nil:
		outcome = "rejected"
	}
	UpstreamCallsTotal.WithLabelValues(resource, method, outcome).Inc()
	UpstreamCallDuration.WithLabelValues(resource, method).Observe(d.Seconds())
}
