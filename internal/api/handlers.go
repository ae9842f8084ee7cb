package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/matzehuels/polargraph/pkg/buildinfo"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/pipeline"
)

// contentTypes maps output formats to response media types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPlot: "image/png",
}

// Response headers describing a conversion.
const (
	HeaderTotalRows    = "X-Polargraph-Total-Rows"
	HeaderAdjustedRows = "X-Polargraph-Adjusted-Rows"
	HeaderCache        = "X-Polargraph-Cache"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version buildinfo.Info `json:"version"`
}

type presetResponse struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Builtin     bool             `json:"builtin"`
	Options     pipeline.Options `json:"options"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Get()})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := s.config.Presets()
	out := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		opts, err := s.config.Options(p.Name)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		out = append(out, presetResponse{
			Name:        p.Name,
			Description: p.Description,
			Builtin:     p.Builtin,
			Options:     opts,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.parseOptions(r.URL.Query())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, string(errors.ErrCodeInvalidInput),
				"upload exceeds "+strconv.FormatInt(s.maxUpload, 10)+" bytes")
			return
		}
		s.writeFailure(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "multipart field \"image\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeFailure(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload"))
		return
	}

	opts.Logger = s.logger.With("request_id", RequestIDFromContext(r.Context()))
	result, err := s.runner.Execute(r.Context(), pipeline.Input{Data: data, Name: header.Filename}, opts)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	cacheState := "miss"
	if result.CacheInfo.ConvertHit && result.CacheInfo.RenderHit {
		cacheState = "hit"
	}
	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set(HeaderTotalRows, strconv.Itoa(result.Stats.TotalRows))
	h.Set(HeaderAdjustedRows, strconv.Itoa(result.Stats.AdjustedRows))
	h.Set(HeaderCache, cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// parseOptions builds options from the preset layer and the query overrides.
// Only one output format is served per request.
func (s *Server) parseOptions(q url.Values) (pipeline.Options, string, error) {
	opts, err := s.config.Options(q.Get("preset"))
	if err != nil {
		return opts, "", err
	}

	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, "", err
	}
	opts.Formats = []string{format}

	p := queryParser{q: q}
	p.floatParam("line_spacing", &opts.LineSpacing)
	p.floatParam("amplitude_scale", &opts.AmplitudeScale)
	p.floatParam("darkness_threshold", &opts.DarknessThreshold)
	p.floatParam("min_clearance", &opts.MinClearance)
	p.floatParam("stroke_width", &opts.StrokeWidth)
	p.boolParam("segmented", &opts.Segmented)
	p.boolParam("organic", &opts.Organic)
	p.uintParam("seed", &opts.Seed)
	p.intParam("max_width", &opts.MaxWidth)
	if p.err != nil {
		return opts, "", p.err
	}
	if err := opts.Validate(); err != nil {
		return opts, "", err
	}
	return opts, format, nil
}

// queryParser reads optional typed query parameters, keeping the first error.
type queryParser struct {
	q   url.Values
	err error
}

func (p *queryParser) parse(name string, fn func(string) error) {
	v := p.q.Get(name)
	if p.err != nil || v == "" {
		return
	}
	if err := fn(v); err != nil {
		p.err = errors.New(errors.ErrCodeInvalidParameter, "invalid %s: %q", name, v)
	}
}

func (p *queryParser) floatParam(name string, dst *float64) {
	p.parse(name, func(v string) (err error) {
		*dst, err = strconv.ParseFloat(v, 64)
		return err
	})
}

func (p *queryParser) boolParam(name string, dst *bool) {
	p.parse(name, func(v string) (err error) {
		*dst, err = strconv.ParseBool(v)
		return err
	})
}

func (p *queryParser) uintParam(name string, dst *uint64) {
	p.parse(name, func(v string) (err error) {
		*dst, err = strconv.ParseUint(v, 10, 64)
		return err
	})
}

func (p *queryParser) intParam(name string, dst *int) {
	p.parse(name, func(v string) (err error) {
		*dst, err = strconv.Atoi(v)
		return err
	})
}

// writeFailure maps an error to its HTTP status.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeDecode):
		status = http.StatusUnprocessableEntity
	case errors.IsParameterError(err), errors.IsInputError(err):
		status = http.StatusBadRequest
	}

	code := string(errors.GetCode(err))
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestIDFromContext(r.Context()), "error", err)
		if code == "" {
			code = string(errors.ErrCodeInternal)
		}
		msg = "internal error"
	}
	writeError(w, r, status, code, msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, RequestID: RequestIDFromContext(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
