package entity

// Origin tells where the raw text of a request came from.
type Origin string

const (
	OriginURL    Origin = "url"
	OriginInline Origin = "inline"
)

// RawSource is the text a request starts from, before normalization.
type RawSource struct {
	Origin Origin
	URL    string
	Portal string
	Text   string
}

// SummaryResult is the hypothesis produced by the dispatcher.
type SummaryResult struct {
	Text          string
	SourceBackend BackendID
	LengthMode    LengthMode
	ChunkCount    int
}

// ReferenceSummary is the independent baseline summary used for scoring.
type ReferenceSummary struct {
	Text     string
	Provider string
}

// MetricScore holds precision, recall and F-measure, each in [0,1].
type MetricScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"fmeasure"`
}

// OverlapScore is the ROUGE-1, ROUGE-2 and ROUGE-L result for a
// (hypothesis, reference) pair.
type OverlapScore struct {
	Rouge1 MetricScore `json:"rouge1"`
	Rouge2 MetricScore `json:"rouge2"`
	RougeL MetricScore `json:"rougeL"`
}
