package convert

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFixMetadataEncoding(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantEnc  string
		wantSkip bool
	}{
		{"rewrites default", `{"encoding":"DEFAULT","points":42}`, "BINARY", false},
		{"leaves binary alone", `{"encoding":"BINARY"}`, "BINARY", true},
		{"leaves other values alone", `{"encoding":"BROTLI"}`, "BROTLI", true},
		{"missing field untouched", `{"points":1}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "metadata.json")
			if err := os.WriteFile(path, []byte(tt.input), 0o644); err != nil {
				t.Fatal(err)
			}
			before, _ := os.ReadFile(path)

			if err := FixMetadataEncoding(path); err != nil {
				t.Fatalf("FixMetadataEncoding() error: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantSkip && string(raw) != string(before) {
				t.Errorf("file rewritten, want untouched")
			}
			var meta map[string]any
			if err := json.Unmarshal(raw, &meta); err != nil {
				t.Fatalf("output not valid JSON: %v", err)
			}
			enc, _ := meta["encoding"].(string)
			if enc != tt.wantEnc {
				t.Errorf("encoding = %q, want %q", enc, tt.wantEnc)
			}
			if tt.name == "rewrites default" {
				if v, ok := meta["points"].(float64); !ok || v != 42 {
					t.Errorf("sibling fields not preserved: %v", meta)
				}
			}
		})
	}
}

func TestFixMetadataEncodingMissingFile(t *testing.T) {
	err := FixMetadataEncoding(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("FixMetadataEncoding() on missing file succeeded, want error")
	}
}

func TestPotreeMissingBinary(t *testing.T) {
	p := &Potree{Bin: filepath.Join(t.TempDir(), "PotreeConverter")}
	_, err := p.Convert(context.Background(), "in.las", t.TempDir())
	if err == nil {
		t.Fatal("Convert() with missing binary succeeded, want error")
	}
}

func TestMockConverterRecordsCalls(t *testing.T) {
	m := &MockConverter{}
	out, err := m.Convert(context.Background(), "a.las", "outdir")
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if out != "outdir" {
		t.Errorf("Convert() = %q, want %q", out, "outdir")
	}

	m.Err = errors.New("boom")
	if _, err := m.Convert(context.Background(), "b.las", "other"); err == nil {
		t.Error("Convert() with Err set succeeded, want error")
	}

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("Calls() = %d entries, want 2", len(calls))
	}
	if calls[0].LASPath != "a.las" || calls[1].OutDir != "other" {
		t.Errorf("unexpected recorded calls: %+v", calls)
	}
}
