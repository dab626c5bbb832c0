package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"nepsum/internal/domain/entity"
	"nepsum/internal/handler/http/requestid"
	"nepsum/internal/handler/http/respond"
	"nepsum/internal/observability/tracing"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/usecase/acquire"
	"nepsum/internal/usecase/pipeline"

	"go.opentelemetry.io/otel/attribute"
)

// Runner executes one summarization request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// SummarizeRequest is the JSON body accepted by POST / and POST /summarize.
type SummarizeRequest struct {
	Text           string `json:"text"`
	URL            string `json:"url"`
	SelectedLength string `json:"selectedLength"`
	SelectedModel  string `json:"selectedModel"`
	Evaluate       *bool  `json:"evaluate,omitempty"`
}

// SummarizeResponse is the successful reply. hypothesis_summary and
// summarized_text carry the same text for the two client generations.
type SummarizeResponse struct {
	FormattedText     string               `json:"formatted_text"`
	HypothesisSummary string               `json:"hypothesis_summary"`
	SummarizedText    string               `json:"summarized_text"`
	SelectedModel     string               `json:"selected_model"`
	SelectedLength    string               `json:"selected_length"`
	ChunkCount        int                  `json:"chunk_count"`
	Portal            string               `json:"portal,omitempty"`
	ReferenceSummary  string               `json:"reference_summary,omitempty"`
	ReferenceProvider string               `json:"reference_provider,omitempty"`
	RougeScores       *entity.OverlapScore `json:"rouge_scores,omitempty"`
}

const (
	msgPostOnly       = "This endpoint only supports POST requests."
	msgInvalidJSON    = "Invalid JSON format"
	msgMissingLength  = "Missing required parameter: selectedLength"
	msgBodyTooLarge   = "request body too large"
	msgAcquireFailed  = "failed to fetch article text from url"
	msgBackendFailed  = "summarization backend failed"
	msgBackendDown    = "summarization backend unavailable"
	msgReferenceError = "reference summary provider failed"
	msgTimedOut       = "request timed out"
	msgCancelled      = "request cancelled"
)

// SummarizeHandler serves the summarization endpoint.
type SummarizeHandler struct {
	Runner Runner
	Logger *slog.Logger
}

// NewSummarizeHandler creates a handler around runner.
func NewSummarizeHandler(runner Runner, logger *slog.Logger) *SummarizeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeHandler{Runner: runner, Logger: logger}
}

func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond.Error(w, http.StatusMethodNotAllowed, errors.New(msgPostOnly))
		return
	}

	req, err := decodeSummarizeRequest(r.Body)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, err)
		return
	}

	preq, err := toPipelineRequest(req)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, err)
		return
	}

	h.Logger.DebugContext(r.Context(), "summarize request",
		requestid.Attr(r.Context()),
		slog.Bool("has_url", preq.URL != ""),
		slog.Int("text_bytes", len(preq.Text)),
		slog.String("backend", string(preq.Backend)),
		slog.String("length", string(preq.Length)),
		slog.Bool("evaluate", preq.Evaluate))

	annotateSpan(r.Context(), preq)

	res, err := h.Runner.Run(r.Context(), preq)
	if err != nil {
		appErr := mapPipelineError(err)
		respond.Fail(w, appErr.Code, appErr)
		return
	}

	respond.JSON(w, http.StatusOK, toSummarizeResponse(res))
}

// annotateSpan labels the request's server span with the selection and,
// for URL input, the portal the article is fetched from.
func annotateSpan(ctx context.Context, req pipeline.Request) {
	attrs := []attribute.KeyValue{
		attribute.String("backend", string(req.Backend)),
		attribute.String("length", string(req.Length)),
	}
	if req.URL != "" {
		attrs = append(attrs, attribute.String("portal", acquire.IdentifyPortal(req.URL)))
	}
	tracing.Annotate(ctx, attrs...)
}

func decodeSummarizeRequest(body io.Reader) (SummarizeRequest, error) {
	var req SummarizeRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, respond.NewAppError(http.StatusRequestEntityTooLarge, msgBodyTooLarge, err)
		}
		return req, respond.NewAppError(http.StatusBadRequest, msgInvalidJSON, err)
	}
	return req, nil
}

// toPipelineRequest checks presence of selectedLength here; its value and
// the backend selector are validated by the pipeline.
func toPipelineRequest(req SummarizeRequest) (pipeline.Request, error) {
	if strings.TrimSpace(req.SelectedLength) == "" {
		return pipeline.Request{}, respond.NewAppError(http.StatusBadRequest, msgMissingLength, nil)
	}

	length, err := entity.ParseLengthMode(req.SelectedLength)
	if err != nil {
		return pipeline.Request{}, respond.NewAppError(http.StatusBadRequest, err.Error(), err)
	}
	backend, err := entity.ParseBackendID(req.SelectedModel)
	if err != nil {
		return pipeline.Request{}, respond.NewAppError(http.StatusBadRequest, err.Error(), err)
	}

	evaluate := true
	if req.Evaluate != nil {
		evaluate = *req.Evaluate
	}

	return pipeline.Request{
		Text:     req.Text,
		URL:      strings.TrimSpace(req.URL),
		Length:   length,
		Backend:  backend,
		Evaluate: evaluate,
	}, nil
}

func toSummarizeResponse(res *pipeline.Result) SummarizeResponse {
	out := SummarizeResponse{
		FormattedText:     res.FormattedText,
		HypothesisSummary: res.Summary.Text,
		SummarizedText:    res.Summary.Text,
		SelectedModel:     res.Summary.SourceBackend.Selector(),
		SelectedLength:    string(res.Summary.LengthMode),
		ChunkCount:        res.Summary.ChunkCount,
		Portal:            res.Source.Portal,
	}
	if res.Reference != nil {
		out.ReferenceSummary = res.Reference.Text
		out.ReferenceProvider = res.Reference.Provider
	}
	if res.Scores != nil {
		scores := *res.Scores
		out.RougeScores = &scores
	}
	return out
}

// mapPipelineError converts the pipeline's error taxonomy into an HTTP
// status and a client-safe message.
func mapPipelineError(err error) *respond.AppError {
	var (
		validationErr *entity.ValidationError
		selectionErr  *entity.InvalidSelectionError
		acquireErr    *entity.AcquisitionError
		backendErr    *entity.BackendError
		referenceErr  *entity.ReferenceProviderError
	)

	switch {
	case errors.As(err, &validationErr):
		return respond.NewAppError(http.StatusBadRequest, validationErr.Error(), err)
	case errors.As(err, &selectionErr):
		return respond.NewAppError(http.StatusBadRequest, selectionErr.Error(), err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, acquire.ErrTimeout):
		return respond.NewAppError(http.StatusGatewayTimeout, msgTimedOut, err)
	case errors.Is(err, context.Canceled):
		return respond.NewAppError(http.StatusServiceUnavailable, msgCancelled, err)
	case errors.As(err, &acquireErr):
		if errors.Is(err, acquire.ErrInvalidURL) || errors.Is(err, acquire.ErrPrivateIP) {
			return respond.NewAppError(http.StatusBadRequest, "invalid url: "+acquireErr.URL, err)
		}
		return respond.NewAppError(http.StatusBadGateway, msgAcquireFailed, err)
	case errors.As(err, &backendErr):
		if errors.Is(err, entity.ErrBackendUnavailable) || circuitbreaker.IsOpenError(err) {
			return respond.NewAppError(http.StatusServiceUnavailable, msgBackendDown, err)
		}
		return respond.NewAppError(http.StatusBadGateway, msgBackendFailed, err)
	case errors.As(err, &referenceErr):
		return respond.NewAppError(http.StatusBadGateway, msgReferenceError, err)
	default:
		return respond.NewAppError(http.StatusInternalServerError, "internal server error", err)
	}
}
