package tokenizer

import "testing"

func TestEstimator_Count(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		model string
		want  int
	}{
		{"empty", "", "", 0},
		{"one char", "a", "", 1},
		{"exact multiple", "abcdefgh", "", 2},
		{"rounds up", "abcdefghi", "", 3},
		{"runes not bytes", "héllo wörld!", "", 3},
		{"claude family", "abcdefg", "claude-3-haiku", 2},
		{"unknown model uses default", "abcdefgh", "my-model", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Estimator{}).Count(tt.text, tt.model); got != tt.want {
				t.Errorf("Count(%q, %q) = %d, want %d", tt.text, tt.model, got, tt.want)
			}
		})
	}
}

func TestEstimator_CustomRatio(t *testing.T) {
	e := Estimator{CharsPerToken: 2}
	if got := e.Count("abcdef", ""); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestCounter_OpenAIModels(t *testing.T) {
	c := New()

	tests := []struct {
		name  string
		text  string
		model string
		want  int
	}{
		{"empty", "", "gpt-4", 0},
		{"two words", "hello world", "gpt-4", 2},
		{"case-insensitive hint", "hello world", "GPT-3.5-turbo", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Count(tt.text, tt.model); got != tt.want {
				t.Errorf("Count(%q, %q) = %d, want %d", tt.text, tt.model, got, tt.want)
			}
		})
	}
}

func TestCounter_FallsBackToEstimator(t *testing.T) {
	c := New()
	text := "abcdefghijklmnop"
	for _, model := range []string{"", "claude-3-haiku", "llama-3"} {
		if got, want := c.Count(text, model), (Estimator{}).Count(text, model); got != want {
			t.Errorf("Count(%q) = %d, want estimator's %d", model, got, want)
		}
	}
}
