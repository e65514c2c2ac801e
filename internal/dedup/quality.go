// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// formatScore ranks container/codec quality; higher wins ties between
// otherwise-identical tracks encoded in different formats.
var formatScore = map[string]int{
	"flac": 100, "alac": 95, "aiff": 90, "wav": 85,
	"m4a": 80, "ogg": 70, "mp3": 60, "aac": 55, "wma": 40,
}

// fallbackBitDepth/fallbackSampleRate/fallbackBitrate are used only when
// ffprobe itself is unavailable or fails on a given file, so the quality
// formula degrades to format-only comparison instead of erroring out.
const (
	fallbackBitDepth   = 16
	fallbackSampleRate = 44100
	fallbackBitrate    = 0
)

const ffprobeTimeout = 15 * time.Second

// streamInfo holds the per-file audio stream properties quality scoring
// needs, read via ffprobe since dhowden/tag exposes container tags only.
type streamInfo struct {
	bitDepth    int
	sampleRate  int
	bitrateKbps int
}

// ffprobeOutput mirrors the subset of `ffprobe -print_format json
// -show_format -show_streams` output this package reads.
type ffprobeOutput struct {
	Format struct {
		BitRate string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		SampleRate       string `json:"sample_rate"`
		BitsPerSample    int    `json:"bits_per_sample"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
	} `json:"streams"`
}

// probeStream shells out to ffprobeBin (defaulting to "ffprobe") to read
// the real bit depth, sample rate, and bitrate of path. Returns the
// fallback values if the binary is missing or the file can't be probed.
func probeStream(ffprobeBin, path string) streamInfo {
	info := streamInfo{
		bitDepth:    fallbackBitDepth,
		sampleRate:  fallbackSampleRate,
		bitrateKbps: fallbackBitrate,
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	ctx, cancel := context.WithTimeout(context.Background(), ffprobeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return info
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return info
	}

	if out.Format.BitRate != "" {
		if bitrate, err := strconv.Atoi(out.Format.BitRate); err == nil {
			info.bitrateKbps = bitrate / 1000
		}
	}
	if len(out.Streams) > 0 {
		s := out.Streams[0]
		if s.SampleRate != "" {
			if rate, err := strconv.Atoi(s.SampleRate); err == nil {
				info.sampleRate = rate
			}
		}
		switch {
		case s.BitsPerSample > 0:
			info.bitDepth = s.BitsPerSample
		case s.BitsPerRawSample != "":
			if depth, err := strconv.Atoi(s.BitsPerRawSample); err == nil && depth > 0 {
				info.bitDepth = depth
			}
		}
	}
	return info
}

// QualityScore packs format, bit depth, sample rate, and bitrate into one
// integer so a higher tier can never be overridden by a lower one:
// format*10^6 + bit_depth*10^4 + (sample_rate/1000)*10^2 + bitrate/1000.
func QualityScore(path, ffprobeBin string) int {
	format := fileFormat(path)
	score := formatScore[format]
	if score == 0 {
		score = 50
	}
	info := probeStream(ffprobeBin, path)
	return score*1_000_000 + info.bitDepth*10_000 + (info.sampleRate/1000)*100 + info.bitrateKbps
}

// QualityLabel renders a human-readable quality string for logging.
func QualityLabel(path string) string {
	format := strings.ToUpper(fileFormat(path))
	return format
}

func fileFormat(path string) string {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if m, tagErr := tag.ReadFrom(f); tagErr == nil {
			if ft := strings.ToLower(string(m.FileType())); ft != "" {
				return ft
			}
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return ext
}
