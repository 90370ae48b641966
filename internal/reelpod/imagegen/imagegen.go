// Package imagegen renders cover images through an SDXL inference
// sidecar and fits them to the requested dimensions.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/image/draw"
)

const (
	inferenceSteps = 25
	// aspectTolerance bounds the aspect drift we accept without a
	// letterbox pass.
	aspectTolerance = 1e-6

	requestTimeout = 120 * time.Second
)

// ErrNotConfigured is returned when no sidecar URL was provided.
var ErrNotConfigured = errors.New("image pipeline not configured")

// sdxlSizes are the generation dimensions SDXL was trained on. The
// pipeline renders at the closest aspect ratio and letterboxes the rest
// of the way.
var sdxlSizes = [][2]int{
	{1024, 1024},
	{1152, 896},
	{1216, 832},
	{1344, 768},
	{1536, 640},
	{896, 1152},
	{832, 1216},
	{768, 1344},
	{640, 1536},
}

// Pipeline generates PNG cover images. Zero value is unusable; create
// with [NewPipeline].
type Pipeline struct {
	sidecarURL string
	httpClient *http.Client
}

// NewPipeline creates a pipeline backed by the inference sidecar at
// sidecarURL. An empty URL yields a pipeline whose Generate always
// returns [ErrNotConfigured].
func NewPipeline(sidecarURL string) *Pipeline {
	return &Pipeline{
		sidecarURL: sidecarURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// OptimalSize picks the SDXL generation size whose aspect ratio is
// closest to the target.
func OptimalSize(targetWidth, targetHeight int) (int, int) {
	targetAspect := float64(targetWidth) / float64(targetHeight)

	best := sdxlSizes[0]
	minDiff := math.Inf(1)
	for _, size := range sdxlSizes {
		aspect := float64(size[0]) / float64(size[1])
		if diff := math.Abs(aspect - targetAspect); diff < minDiff {
			minDiff = diff
			best = size
		}
	}
	return best[0], best[1]
}

// Generate renders a PNG at exactly targetWidth x targetHeight.
func (p *Pipeline) Generate(ctx context.Context, prompt string, targetWidth, targetHeight int) ([]byte, error) {
	if p.sidecarURL == "" {
		return nil, ErrNotConfigured
	}

	genWidth, genHeight := OptimalSize(targetWidth, targetHeight)
	data, err := p.infer(ctx, prompt, genWidth, genHeight)
	if err != nil {
		return nil, err
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding generated image: %w", err)
	}

	if !needsLetterbox(src.Bounds().Dx(), src.Bounds().Dy(), targetWidth, targetHeight) {
		return data, nil
	}

	fitted := letterbox(src, targetWidth, targetHeight)
	var out bytes.Buffer
	if err := png.Encode(&out, fitted); err != nil {
		return nil, fmt.Errorf("encoding final image: %w", err)
	}
	return out.Bytes(), nil
}

func (p *Pipeline) infer(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":              prompt,
		"width":               width,
		"height":              height,
		"num_inference_steps": inferenceSteps,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sidecarURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image sidecar returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func needsLetterbox(srcWidth, srcHeight, targetWidth, targetHeight int) bool {
	if srcWidth != targetWidth || srcHeight != targetHeight {
		return true
	}
	srcAspect := float64(srcWidth) / float64(srcHeight)
	targetAspect := float64(targetWidth) / float64(targetHeight)
	return math.Abs(srcAspect-targetAspect) > aspectTolerance
}

// letterbox scales src to fit inside the target dimensions preserving
// aspect ratio, centered on a black background.
func letterbox(src image.Image, targetWidth, targetHeight int) image.Image {
	srcWidth := src.Bounds().Dx()
	srcHeight := src.Bounds().Dy()
	srcAspect := float64(srcWidth) / float64(srcHeight)
	targetAspect := float64(targetWidth) / float64(targetHeight)

	var newWidth, newHeight int
	if srcAspect > targetAspect {
		newWidth = targetWidth
		newHeight = max(1, int(math.Round(float64(targetWidth)/srcAspect)))
	} else {
		newHeight = targetHeight
		newWidth = max(1, int(math.Round(float64(targetHeight)*srcAspect)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	x := (targetWidth - newWidth) / 2
	y := (targetHeight - newHeight) / 2
	scaled := image.Rect(x, y, x+newWidth, y+newHeight)
	draw.CatmullRom.Scale(dst, scaled, src, src.Bounds(), draw.Over, nil)

	return dst
}
