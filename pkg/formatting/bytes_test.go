package formatting_test

import (
	"testing"

	"github.com/JaimeStill/sentinel/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"bytes unit", "512B", 512, false},
		{"kilobytes", "1KB", 1024, false},
		{"megabytes", "10MB", 10 << 20, false},
		{"fractional", "1.5GB", 3 << 29, false},
		{"lowercase unit", "10mb", 10 << 20, false},
		{"with space", "100 MB", 100 << 20, false},
		{"surrounding whitespace", "  50MB  ", 50 << 20, false},
		{"zero", "0", 0, false},
		{"empty string", "", 0, true},
		{"unknown unit", "50XB", 0, true},
		{"no number", "MB", 0, true},
		{"negative", "-5MB", 0, true},
		{"trailing dot", "5.MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 1, "0 B"},
		{-10, 1, "0 B"},
		{512, 0, "512 B"},
		{1536, 1, "1.5 KB"},
		{10 << 20, 0, "10 MB"},
		{3 << 29, 2, "1.50 GB"},
		{1 << 20, -3, "1 MB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
		}
	}
}

func TestSizeText(t *testing.T) {
	var s formatting.Size
	if err := s.UnmarshalText([]byte("10MB")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != 10<<20 {
		t.Errorf("size = %d, want %d", s, 10<<20)
	}

	text, err := s.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(text) != "10 MB" {
		t.Errorf("text = %q, want %q", text, "10 MB")
	}

	if err := s.UnmarshalText([]byte("lots")); err == nil {
		t.Error("expected error for invalid size")
	}
}
