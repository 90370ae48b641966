package api

import (
	"strings"
	"testing"
)

func TestDecodeGenerateRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    generateRequest
		wantErr bool
	}{
		{
			name: "empty object gets defaults",
			body: `{}`,
			want: generateRequest{Mode: "params", Mood: "chill", Tempo: 80, Duration: 40, Style: "jazz"},
		},
		{
			name: "params mode with overrides",
			body: `{"mode": "params", "mood": "mellow", "tempo": 95, "duration": 120, "style": "hiphop"}`,
			want: generateRequest{Mode: "params", Mood: "mellow", Tempo: 95, Duration: 120, Style: "hiphop"},
		},
		{
			name: "text mode with prompt",
			body: `{"mode": "text", "prompt": "rainy evening beats"}`,
			want: generateRequest{Mode: "text", Prompt: "rainy evening beats", Mood: "chill", Tempo: 80, Duration: 40, Style: "jazz"},
		},
		{
			name: "prompt is trimmed",
			body: `{"mode": "text", "prompt": "  spaced  "}`,
			want: generateRequest{Mode: "text", Prompt: "spaced", Mood: "chill", Tempo: 80, Duration: 40, Style: "jazz"},
		},
		{name: "text mode without prompt", body: `{"mode": "text"}`, wantErr: true},
		{name: "text+params without prompt", body: `{"mode": "text+params"}`, wantErr: true},
		{name: "unknown mode", body: `{"mode": "freestyle"}`, wantErr: true},
		{name: "blank prompt", body: `{"mode": "text", "prompt": "   "}`, wantErr: true},
		{name: "prompt wrong type", body: `{"mode": "text", "prompt": 7}`, wantErr: true},
		{name: "blank mood", body: `{"mood": ""}`, wantErr: true},
		{name: "tempo below range", body: `{"tempo": 59}`, wantErr: true},
		{name: "tempo above range", body: `{"tempo": 121}`, wantErr: true},
		{name: "tempo not integral", body: `{"tempo": 80.5}`, wantErr: true},
		{name: "tempo as string", body: `{"tempo": "80"}`, wantErr: true},
		{name: "duration below range", body: `{"duration": 39}`, wantErr: true},
		{name: "duration above range", body: `{"duration": 301}`, wantErr: true},
		{name: "malformed JSON", body: `{"mode":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeGenerateRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Errorf("decoded %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name string
		req  generateRequest
		want string
	}{
		{
			name: "text mode uses prompt verbatim",
			req:  generateRequest{Mode: "text", Prompt: "midnight rain", Mood: "chill", Tempo: 80, Style: "jazz"},
			want: "midnight rain",
		},
		{
			name: "text+params appends parameters",
			req:  generateRequest{Mode: "text+params", Prompt: "midnight rain", Mood: "warm", Tempo: 90, Style: "soul"},
			want: "midnight rain, warm, soul, 90 BPM",
		},
		{
			name: "text-and-parameters is an alias",
			req:  generateRequest{Mode: "text-and-parameters", Prompt: "p", Mood: "warm", Tempo: 90, Style: "soul"},
			want: "p, warm, soul, 90 BPM",
		},
		{
			name: "params mode composes from parameters",
			req:  generateRequest{Mode: "params", Mood: "chill", Tempo: 80, Style: "jazz"},
			want: "chill lofi jazz, 80 BPM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildPrompt(&tt.req); got != tt.want {
				t.Errorf("buildPrompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEffectiveTempo(t *testing.T) {
	// Text mode pins tempo regardless of the request value.
	if got := effectiveTempo(&generateRequest{Mode: "text", Tempo: 110}); got != 80 {
		t.Errorf("text mode tempo = %d, want 80", got)
	}
	if got := effectiveTempo(&generateRequest{Mode: "params", Tempo: 110}); got != 110 {
		t.Errorf("params mode tempo = %d, want 110", got)
	}
}

func TestDecodeImageRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    imageRequest
		wantErr bool
	}{
		{
			name: "prompt only gets square default",
			body: `{"prompt": "cover art"}`,
			want: imageRequest{Prompt: "cover art", TargetWidth: 1024, TargetHeight: 1024},
		},
		{
			name: "camelCase dimensions",
			body: `{"prompt": "p", "targetWidth": 1920, "targetHeight": 1080}`,
			want: imageRequest{Prompt: "p", TargetWidth: 1920, TargetHeight: 1080},
		},
		{
			name: "snake_case dimensions",
			body: `{"prompt": "p", "target_width": 640, "target_height": 480}`,
			want: imageRequest{Prompt: "p", TargetWidth: 640, TargetHeight: 480},
		},
		{name: "missing prompt", body: `{"targetWidth": 512}`, wantErr: true},
		{name: "blank prompt", body: `{"prompt": "  "}`, wantErr: true},
		{name: "zero width", body: `{"prompt": "p", "targetWidth": 0}`, wantErr: true},
		{name: "width wrong type", body: `{"prompt": "p", "targetWidth": "big"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeImageRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Errorf("decoded %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}
