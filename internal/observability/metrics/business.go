package metrics

import (
	"time"
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordSummary records the outcome of a pipeline run.
// backend and length are the wire values; both may be empty when the
// request failed validation.
func RecordSummary(backend, length string, success bool, duration time.Duration) {
	SummariesTotal.WithLabelValues(backend, length, status(success)).Inc()
	PipelineDuration.WithLabelValues(length).Observe(duration.Seconds())
}

// RecordChunks records how many chunks a long-mode text was split into.
func RecordChunks(n int) {
	ChunksPerRequest.Observe(float64(n))
}

// RecordBackendCall records the duration of one generation call.
func RecordBackendCall(backend string, success bool, duration time.Duration) {
	BackendCallDuration.WithLabelValues(backend, status(success)).Observe(duration.Seconds())
}

// RecordAcquisition records an article acquisition.
// source is the extractor that produced (or failed to produce) the text:
// "portal", "extractor-api" or "readability".
func RecordAcquisition(portal, source string, success bool, duration time.Duration) {
	AcquisitionsTotal.WithLabelValues(portal, source, status(success)).Inc()
	AcquisitionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordReference records a reference summary request.
func RecordReference(provider string, success bool) {
	ReferenceRequestsTotal.WithLabelValues(provider, status(success)).Inc()
}

// RecordRouge records the F-measures of a scored summary.
//
// Example:
//
//	score := scorer.Score(hypothesis, reference)
//	metrics.RecordRouge(score.Rouge1.FMeasure, score.Rouge2.FMeasure, score.RougeL.FMeasure)
func RecordRouge(rouge1, rouge2, rougeL float64) {
	RougeFMeasure.WithLabelValues("rouge1").Observe(rouge1)
	RougeFMeasure.WithLabelValues("rouge2").Observe(rouge2)
	RougeFMeasure.WithLabelValues("rougeL").Observe(rougeL)
}
