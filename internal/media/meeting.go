// ABOUTME: On-disk layout of a meeting: video, audio, segments, transcript and summary
// ABOUTME: A file's existence marks its stage as done
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
)

// VideoExtensions are the container formats the meeting flow accepts
var VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".webm"}

// IsVideoFile reports whether path has a supported video extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range VideoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// Meeting names the files derived from one video under Dir
type Meeting struct {
	Dir  string
	Name string
	Ext  string
}

// NewMeeting derives the meeting layout under <dataDir>/meetings for videoPath
func NewMeeting(dataDir, videoPath string) (*Meeting, error) {
	if !IsVideoFile(videoPath) {
		return nil, fmt.Errorf("%w: %s is not a supported video (%s)",
			models.ErrUnsupportedInput, filepath.Base(videoPath), strings.Join(VideoExtensions, ", "))
	}
	base := filepath.Base(videoPath)
	ext := filepath.Ext(base)
	return &Meeting{
		Dir:  filepath.Join(dataDir, "meetings"),
		Name: strings.TrimSuffix(base, ext),
		Ext:  ext,
	}, nil
}

func (m *Meeting) VideoPath() string      { return filepath.Join(m.Dir, m.Name+m.Ext) }
func (m *Meeting) AudioPath() string      { return filepath.Join(m.Dir, m.Name+".mp3") }
func (m *Meeting) TranscriptPath() string { return filepath.Join(m.Dir, m.Name+".txt") }
func (m *Meeting) SummaryPath() string    { return filepath.Join(m.Dir, m.Name+"_summary.txt") }
func (m *Meeting) SegmentsDir() string    { return filepath.Join(m.Dir, "chunks", m.Name) }

// HasTranscript reports whether the transcript stage is complete
func (m *Meeting) HasTranscript() bool {
	return util.FileExists(m.TranscriptPath())
}

// Import copies src into VideoPath unless a video is already there
func (m *Meeting) Import(src string) error {
	dst := m.VideoPath()
	if util.FileExists(dst) {
		return nil
	}
	if abs, err := filepath.Abs(src); err == nil {
		if absDst, err := filepath.Abs(dst); err == nil && abs == absDst {
			return nil
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create meetings directory: %w", err)
	}
	tmp, err := os.CreateTemp(m.Dir, "."+m.Name+".import-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// ListMeetings returns the imported meetings under <dataDir>/meetings, sorted by name
func ListMeetings(dataDir string) ([]*Meeting, error) {
	dir := filepath.Join(dataDir, "meetings")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	var meetings []*Meeting
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !IsVideoFile(e.Name()) {
			continue
		}
		m, err := NewMeeting(dataDir, e.Name())
		if err != nil {
			continue
		}
		meetings = append(meetings, m)
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].Name < meetings[j].Name })
	return meetings, nil
}
