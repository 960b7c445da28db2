package ffprobe

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func sampleResult(t *testing.T, payload string) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return result
}

func TestDurationPrefersFormat(t *testing.T) {
	result := sampleResult(t, `{
		"streams": [{"codec_type": "video", "duration": "9.5"}],
		"format": {"duration": "10.250000"}
	}`)
	if got := result.DurationSeconds(); math.Abs(got-10.25) > 1e-9 {
		t.Fatalf("expected 10.25, got %v", got)
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := sampleResult(t, `{
		"streams": [{"codec_type": "video", "duration": "42.0"}],
		"format": {}
	}`)
	if got := result.DurationSeconds(); got != 42.0 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestFrameRateRational(t *testing.T) {
	result := sampleResult(t, `{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1"}
		],
		"format": {}
	}`)
	got := result.FrameRate()
	if math.Abs(got-29.97) > 0.01 {
		t.Fatalf("expected ~29.97, got %v", got)
	}
}

func TestFrameRateFallsBackToNominal(t *testing.T) {
	result := sampleResult(t, `{
		"streams": [{"codec_type": "video", "avg_frame_rate": "0/0", "r_frame_rate": "25/1"}],
		"format": {}
	}`)
	if got := result.FrameRate(); got != 25.0 {
		t.Fatalf("expected 25, got %v", got)
	}
}

func TestVideoStreamCount(t *testing.T) {
	result := sampleResult(t, `{
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio"},
			{"codec_type": "VIDEO"}
		],
		"format": {}
	}`)
	if got := result.VideoStreamCount(); got != 2 {
		t.Fatalf("expected 2 video streams, got %d", got)
	}
}

func TestInspectUsesStubBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub script requires a POSIX shell")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := `#!/bin/sh
cat <<'JSON'
{"streams":[{"codec_type":"video","avg_frame_rate":"24/1"}],"format":{"duration":"12.0"}}
JSON
`
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := Inspect(context.Background(), stub, filepath.Join(dir, "whatever.mp4"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.DurationSeconds() != 12.0 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.FrameRate() != 24.0 {
		t.Fatalf("unexpected frame rate: %v", result.FrameRate())
	}
}

func TestInspectEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
