package main

import (
	"encoding/json"
	"fmt"
	"io"

	"nepsum/internal/domain/entity"
	"nepsum/internal/usecase/pipeline"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// record is one summarized article. JSON output writes one record per line.
type record struct {
	URL               string               `json:"url,omitempty"`
	Title             string               `json:"title,omitempty"`
	Portal            string               `json:"portal,omitempty"`
	SelectedModel     string               `json:"selected_model,omitempty"`
	SelectedLength    string               `json:"selected_length,omitempty"`
	ChunkCount        int                  `json:"chunk_count,omitempty"`
	Summary           string               `json:"summary,omitempty"`
	ReferenceSummary  string               `json:"reference_summary,omitempty"`
	ReferenceProvider string               `json:"reference_provider,omitempty"`
	RougeScores       *entity.OverlapScore `json:"rouge_scores,omitempty"`
	Error             string               `json:"error,omitempty"`
}

func newRecord(url, title string, res *pipeline.Result) record {
	rec := record{
		URL:            url,
		Title:          title,
		Portal:         res.Source.Portal,
		SelectedModel:  res.Summary.SourceBackend.Selector(),
		SelectedLength: string(res.Summary.LengthMode),
		ChunkCount:     res.Summary.ChunkCount,
		Summary:        res.Summary.Text,
		RougeScores:    res.Scores,
	}
	if res.Reference != nil {
		rec.ReferenceSummary = res.Reference.Text
		rec.ReferenceProvider = res.Reference.Provider
	}
	return rec
}

type printer struct {
	w      io.Writer
	format string
	enc    *json.Encoder
}

func newPrinter(w io.Writer, format string) *printer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &printer{w: w, format: format, enc: enc}
}

func (p *printer) print(rec record) error {
	if p.format == outputJSON {
		return p.enc.Encode(rec)
	}
	return p.printText(rec)
}

func (p *printer) printText(rec record) error {
	var err error
	line := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(p.w, format, args...)
		}
	}

	if rec.Title != "" {
		line("%s\n", rec.Title)
	}
	if rec.URL != "" {
		line("%s\n", rec.URL)
	}
	if rec.Error != "" {
		line("Error: %s\n\n", rec.Error)
		return err
	}

	line("[%s, %s, %d chunk(s)]\n\n", rec.SelectedModel, rec.SelectedLength, rec.ChunkCount)
	line("%s\n", rec.Summary)
	if rec.ReferenceSummary != "" {
		line("\nReference (%s):\n%s\n", rec.ReferenceProvider, rec.ReferenceSummary)
	}
	if s := rec.RougeScores; s != nil {
		line("\nROUGE F1: rouge1=%.4f rouge2=%.4f rougeL=%.4f\n",
			s.Rouge1.FMeasure, s.Rouge2.FMeasure, s.RougeL.FMeasure)
	}
	line("\n")
	return err
}
