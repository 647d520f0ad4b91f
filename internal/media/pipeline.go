// ABOUTME: Meeting transcription pipeline: extract audio, split into segments, transcribe each
// ABOUTME: Every stage is skipped once the transcript exists, so reruns cost nothing
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/util"
	"github.com/harper/datachat/pkg/executor"
)

// Pipeline turns a meeting video into a transcript
type Pipeline struct {
	exec           executor.Executor
	transcriber    llm.Transcriber
	ffmpeg         string
	segmentMinutes int
	logger         *log.Logger
}

// NewPipeline creates a Pipeline. ffmpeg defaults to "ffmpeg" on PATH and
// segmentMinutes to 10.
func NewPipeline(exec executor.Executor, transcriber llm.Transcriber, ffmpeg string, segmentMinutes int, logger *log.Logger) *Pipeline {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if segmentMinutes <= 0 {
		segmentMinutes = 10
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		exec:           exec,
		transcriber:    transcriber,
		ffmpeg:         ffmpeg,
		segmentMinutes: segmentMinutes,
		logger:         logger,
	}
}

// ExtractAudio writes the video's audio track to AudioPath
func (p *Pipeline) ExtractAudio(ctx context.Context, m *Meeting) error {
	if m.HasTranscript() {
		return nil
	}
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create meetings directory: %w", err)
	}

	p.logger.Info("extracting audio", "video", m.VideoPath())
	args := []string{"-y", "-i", m.VideoPath(), "-vn", m.AudioPath()}
	if _, err := p.exec.Execute(ctx, p.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// SplitAudio cuts AudioPath into fixed-length segments and returns them in order
func (p *Pipeline) SplitAudio(ctx context.Context, m *Meeting) ([]string, error) {
	if m.HasTranscript() {
		return nil, nil
	}

	dir := m.SegmentsDir()
	// leftovers from an interrupted run would be transcribed twice
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear segments: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create segments directory: %w", err)
	}

	p.logger.Info("splitting audio", "audio", m.AudioPath(), "minutes", p.segmentMinutes)
	args := []string{
		"-y",
		"-i", m.AudioPath(),
		"-f", "segment",
		"-segment_time", strconv.Itoa(p.segmentMinutes * 60),
		"-c", "copy",
		filepath.Join(dir, "chunk_%03d.mp3"),
	}
	if _, err := p.exec.Execute(ctx, p.ffmpeg, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg split audio: %w", err)
	}

	return Segments(dir)
}

// Segments lists chunk_NNN.mp3 files in dir in playback order
func Segments(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "chunk_*.mp3"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// TranscribeSegments transcribes every segment in order and writes the joined
// text to TranscriptPath. An existing transcript is returned as is.
func (p *Pipeline) TranscribeSegments(ctx context.Context, m *Meeting, progress func(i, n int)) (string, error) {
	if m.HasTranscript() {
		data, err := os.ReadFile(m.TranscriptPath())
		if err != nil {
			return "", fmt.Errorf("failed to read transcript: %w", err)
		}
		return string(data), nil
	}

	segments, err := Segments(m.SegmentsDir())
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("no audio segments in %s", m.SegmentsDir())
	}

	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if progress != nil {
			progress(i+1, len(segments))
		}
		text, err := p.transcriber.Transcribe(ctx, seg)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(text))
	}

	transcript := strings.Join(parts, "\n")
	if err := util.WriteFileAtomic(m.TranscriptPath(), []byte(transcript), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	p.logger.Info("transcript written", "path", m.TranscriptPath(), "segments", len(segments))
	return transcript, nil
}

// Run executes all stages and returns the transcript
func (p *Pipeline) Run(ctx context.Context, m *Meeting, progress func(i, n int)) (string, error) {
	if err := p.ExtractAudio(ctx, m); err != nil {
		return "", err
	}
	if _, err := p.SplitAudio(ctx, m); err != nil {
		return "", err
	}
	return p.TranscribeSegments(ctx, m, progress)
}
