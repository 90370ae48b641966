package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	minTempo        = 60
	maxTempo        = 120
	minDuration     = 40
	maxDuration     = 300
	defaultTempo    = 80
	defaultDuration = 40
	defaultMood     = "chill"
	defaultStyle    = "jazz"

	defaultImageSize = 1024
)

// invalidPayloadMessage is the single 422 body for every validation
// failure on the generate endpoints.
const invalidPayloadMessage = "Invalid payload. Expected { mode?: 'text'|'text+params'|'text-and-parameters'|'params'|'parameters', " +
	"prompt?: string, mood?: string, tempo?: number (60-120), " +
	"duration?: number (40-300), style?: string }"

// errInvalidPayload marks any request body that fails validation.
var errInvalidPayload = fmt.Errorf("invalid payload")

// Generation modes.
const (
	modeText        = "text"
	modeTextParams  = "text+params"
	modeTextAndPar  = "text-and-parameters"
	modeParams      = "params"
	modeParameters  = "parameters"
)

func textMode(mode string) bool {
	return mode == modeText || mode == modeTextParams || mode == modeTextAndPar
}

// rawGenerateRequest is the wire shape. Pointer and any-typed fields
// let validation distinguish absent, wrong-typed, and out-of-range.
type rawGenerateRequest struct {
	Mode     *string `json:"mode"`
	Prompt   any     `json:"prompt"`
	Mood     any     `json:"mood"`
	Tempo    any     `json:"tempo"`
	Duration any     `json:"duration"`
	Style    any     `json:"style"`
}

// generateRequest is a validated audio generation request.
type generateRequest struct {
	Mode     string
	Prompt   string
	Mood     string
	Tempo    int
	Duration int
	Style    string
}

// decodeGenerateRequest parses and validates a request body. Any
// failure returns errInvalidPayload.
func decodeGenerateRequest(body io.Reader) (*generateRequest, error) {
	var raw rawGenerateRequest
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, errInvalidPayload
	}

	req := &generateRequest{
		Mode:     modeParams,
		Mood:     defaultMood,
		Tempo:    defaultTempo,
		Duration: defaultDuration,
		Style:    defaultStyle,
	}

	if raw.Mode != nil {
		switch *raw.Mode {
		case modeText, modeTextParams, modeTextAndPar, modeParams, modeParameters:
			req.Mode = *raw.Mode
		default:
			return nil, errInvalidPayload
		}
	}

	if raw.Prompt != nil {
		prompt, ok := stringField(raw.Prompt)
		if !ok {
			return nil, errInvalidPayload
		}
		req.Prompt = prompt
	}
	if textMode(req.Mode) && req.Prompt == "" {
		return nil, errInvalidPayload
	}

	if raw.Mood != nil {
		mood, ok := stringField(raw.Mood)
		if !ok {
			return nil, errInvalidPayload
		}
		req.Mood = mood
	}
	if raw.Style != nil {
		style, ok := stringField(raw.Style)
		if !ok {
			return nil, errInvalidPayload
		}
		req.Style = style
	}

	if raw.Tempo != nil {
		tempo, ok := intField(raw.Tempo, minTempo, maxTempo)
		if !ok {
			return nil, errInvalidPayload
		}
		req.Tempo = tempo
	}
	if raw.Duration != nil {
		duration, ok := intField(raw.Duration, minDuration, maxDuration)
		if !ok {
			return nil, errInvalidPayload
		}
		req.Duration = duration
	}

	return req, nil
}

// stringField requires a non-empty string after trimming.
func stringField(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// intField requires an integral JSON number inside [lo, hi].
func intField(v any, lo, hi int) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	n := int(f)
	if n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// buildPrompt assembles the generation prompt from the request mode.
func buildPrompt(req *generateRequest) string {
	switch {
	case req.Mode == modeText:
		return req.Prompt
	case textMode(req.Mode):
		return fmt.Sprintf("%s, %s, %s, %d BPM", req.Prompt, req.Mood, req.Style, req.Tempo)
	default:
		return fmt.Sprintf("%s lofi %s, %d BPM", req.Mood, req.Style, req.Tempo)
	}
}

// effectiveTempo is the tempo handed to the generator. Text mode pins
// it since the prompt carries no BPM hint.
func effectiveTempo(req *generateRequest) int {
	if req.Mode == modeText {
		return defaultTempo
	}
	return req.Tempo
}

// rawImageRequest accepts both camelCase and snake_case dimension keys.
type rawImageRequest struct {
	Prompt       any `json:"prompt"`
	TargetWidth  any `json:"targetWidth"`
	TargetHeight any `json:"targetHeight"`
	WidthAlias   any `json:"target_width"`
	HeightAlias  any `json:"target_height"`
}

type imageRequest struct {
	Prompt       string
	TargetWidth  int
	TargetHeight int
}

func decodeImageRequest(body io.Reader) (*imageRequest, error) {
	var raw rawImageRequest
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, errInvalidPayload
	}

	prompt, ok := stringField(raw.Prompt)
	if !ok {
		return nil, errInvalidPayload
	}
	req := &imageRequest{
		Prompt:       prompt,
		TargetWidth:  defaultImageSize,
		TargetHeight: defaultImageSize,
	}

	width := raw.TargetWidth
	if width == nil {
		width = raw.WidthAlias
	}
	if width != nil {
		n, ok := intField(width, 1, math.MaxInt32)
		if !ok {
			return nil, errInvalidPayload
		}
		req.TargetWidth = n
	}

	height := raw.TargetHeight
	if height == nil {
		height = raw.HeightAlias
	}
	if height != nil {
		n, ok := intField(height, 1, math.MaxInt32)
		if !ok {
			return nil, errInvalidPayload
		}
		req.TargetHeight = n
	}

	return req, nil
}
