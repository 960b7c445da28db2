package manager

import (
	"fmt"
	"strconv"
	"strings"

	"annote/internal/timeutil"
)

// tsvHeader matches the column layout downstream analysis scripts consume.
var tsvHeader = []string{
	"label", "camid", "step_no", "step_name",
	"start_frame", "end_frame", "total_frames",
	"start_time", "end_time", "total_time",
	"time_source", "audio_source", "confidence", "notes",
}

// exportTSV renders the snapshot's annotations as label.tsv. Frame indices
// are derived from the frame rate of each annotation's Time Source at export
// time, falling back to the session default.
func exportTSV(snap snapshot) []byte {
	labelNames := make(map[int]string, len(snap.Labels))
	for _, l := range snap.Labels {
		labelNames[l.Number] = l.Name
	}
	frameRates := make(map[string]float64, len(snap.Videos))
	for _, v := range snap.Videos {
		frameRates[v.ID] = v.FrameRate
	}

	var b strings.Builder
	b.WriteString(strings.Join(tsvHeader, "\t"))
	b.WriteByte('\n')

	for _, a := range snap.Annotations {
		fps := frameRates[a.TimeSource]
		if fps <= 0 {
			fps = frameRates[snap.TimeSource]
		}
		startFrame := timeutil.SecondsToFrames(a.Start, fps)
		endFrame := timeutil.SecondsToFrames(a.End, fps)
		totalFrames := endFrame - startFrame
		if totalFrames < 0 {
			totalFrames = 0
		}

		row := []string{
			snap.Slug,
			a.Views,
			strconv.Itoa(a.Label),
			labelNames[a.Label],
			strconv.Itoa(startFrame),
			strconv.Itoa(endFrame),
			strconv.Itoa(totalFrames),
			fmt.Sprintf("%.3f", a.Start),
			fmt.Sprintf("%.3f", a.End),
			fmt.Sprintf("%.3f", a.End-a.Start),
			a.TimeSource,
			a.AudioSource,
			strconv.Itoa(a.Confidence),
			escapeNotes(a.Notes),
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// escapeNotes keeps a TSV row single-line: tabs become spaces and newlines
// become the literal two characters \n.
func escapeNotes(notes string) string {
	notes = strings.ReplaceAll(notes, "\r", "")
	notes = strings.ReplaceAll(notes, "\t", " ")
	return strings.ReplaceAll(notes, "\n", `\n`)
}
