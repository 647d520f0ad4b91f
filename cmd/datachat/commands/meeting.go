// ABOUTME: meeting command group: transcribe, summarize and chat with recordings
// ABOUTME: Also lists imported meetings and watches a folder for new ones
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/export"
	"github.com/harper/datachat/internal/index"
	"github.com/harper/datachat/internal/media"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/watcher"
)

// NewMeetingCmd creates the meeting command group
func NewMeetingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Transcribe, summarize and ask about meeting recordings",
		Long: `Transcribe, summarize and ask about meeting recordings.

Supported formats: ` + strings.Join(media.VideoExtensions, ", ") + `

The video is copied into the data directory, its audio track is pulled
out with ffmpeg and cut into segments, and each segment is transcribed
with Whisper. Every stage is skipped once the transcript exists, and the
summary is reused once written.`,
	}

	cmd.AddCommand(newMeetingTranscribeCmd())
	cmd.AddCommand(newMeetingSummarizeCmd())
	cmd.AddCommand(newMeetingAskCmd())
	cmd.AddCommand(newMeetingChatCmd())
	cmd.AddCommand(newMeetingListCmd())
	cmd.AddCommand(newMeetingWatchCmd())
	return cmd
}

type transcriptOutput struct {
	Meeting    string `json:"meeting"`
	Transcript string `json:"transcript_path"`
	Characters int    `json:"characters"`
}

func newMeetingTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "transcribe <video>",
		Short:   "Transcribe a meeting recording",
		Example: `  datachat meeting transcribe ~/Movies/standup.mp4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, transcript, err := transcribe(ctx, cmd, a, args[0])
			if err != nil {
				return err
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), transcriptOutput{
					Meeting:    m.Name,
					Transcript: m.TranscriptPath(),
					Characters: len([]rune(transcript)),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Transcript: %s\n", m.TranscriptPath())
			return nil
		},
	}
}

type summaryOutput struct {
	Meeting string `json:"meeting"`
	Path    string `json:"summary_path"`
	Summary string `json:"summary"`
}

func newMeetingSummarizeCmd() *cobra.Command {
	var (
		docxPath  string
		htmlPath  string
		showSteps bool
	)

	cmd := &cobra.Command{
		Use:   "summarize <video|transcript.txt>",
		Short: "Summarize a meeting",
		Long: `Summarize a meeting.

The transcript is split into chunks. The first chunk is summarized and
each following chunk refines that summary. The result is written next to
the transcript as <name>_summary.txt and reused on later runs. A video
that has not been transcribed yet is transcribed first.`,
		Example: `  datachat meeting summarize standup.mp4
  datachat meeting summarize standup.mp4 --docx standup.docx --html standup.html
  datachat meeting summarize notes/interview.txt --steps`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var onStep func(int, models.SummaryState)
			if showSteps {
				onStep = func(i int, state models.SummaryState) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\n\n", dimStyle.Render(fmt.Sprintf("after chunk %d:", i+1)), state.Text)
				}
			}
			progress := progressPrinter(cmd, "Processing document")

			var name, transcriptPath, summaryPath string
			if strings.EqualFold(filepath.Ext(args[0]), ".txt") {
				transcriptPath = args[0]
				summaryPath = app.SummaryPathFor(transcriptPath)
				name = strings.TrimSuffix(filepath.Base(transcriptPath), filepath.Ext(transcriptPath))
			} else {
				m, _, err := transcribe(ctx, cmd, a, args[0])
				if err != nil {
					return err
				}
				transcriptPath, summaryPath, name = m.TranscriptPath(), m.SummaryPath(), m.Name
			}

			summary, err := a.SummarizeFile(ctx, transcriptPath, summaryPath, progress, onStep)
			if err != nil {
				var sf *models.SummarizationFailedError
				if errors.As(err, &sf) {
					return fmt.Errorf("summary failed at chunk %d, nothing was saved: %w", sf.AtIndex+1, sf.Err)
				}
				return err
			}

			if docxPath != "" {
				if err := export.DOCX(name, summary, docxPath); err != nil {
					return err
				}
			}
			if htmlPath != "" {
				if err := export.HTML(name, summary, htmlPath); err != nil {
					return err
				}
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), summaryOutput{Meeting: name, Path: summaryPath, Summary: summary})
			}
			if !quiet {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(name+" summary"))
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&docxPath, "docx", "", "Also export the summary to this .docx file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also export the summary to this .html file")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Print the summary after every refine step")
	return cmd
}

func newMeetingAskCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:     "ask <video> <question>",
		Short:   "Answer a question about a meeting",
		Example: `  datachat meeting ask standup.mp4 "What did we decide about the release date?"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			if err := validateNonNegativeInt(k, "--k"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			session, r, err := indexMeeting(ctx, cmd, a, args[0])
			if err != nil {
				return err
			}
			return ask(ctx, cmd, a, r, session, strings.Join(args[1:], " "), k)
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "Number of chunks of context per question (0 uses RETRIEVER_TOP_K)")
	return cmd
}

func newMeetingChatCmd() *cobra.Command {
	var (
		k    int
		save string
	)

	cmd := &cobra.Command{
		Use:     "chat <video>",
		Short:   "Chat with a meeting interactively",
		Example: `  datachat meeting chat standup.mp4 --save standup-chat.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			if err := validateNonNegativeInt(k, "--k"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			session, r, err := indexMeeting(ctx, cmd, a, args[0])
			if err != nil {
				return err
			}
			return chatLoop(ctx, cmd, a, r, session, k, save)
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "Number of chunks of context per question (0 uses RETRIEVER_TOP_K)")
	cmd.Flags().StringVar(&save, "save", "", "Write the conversation to this YAML file on exit")
	return cmd
}

type meetingListEntry struct {
	Name       string `json:"name"`
	Video      string `json:"video"`
	Transcript bool   `json:"transcript"`
	Summary    bool   `json:"summary"`
}

func newMeetingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported meetings and their stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			meetings, err := media.ListMeetings(cfg.DataDir)
			if err != nil {
				return err
			}

			entries := make([]meetingListEntry, 0, len(meetings))
			for _, m := range meetings {
				_, summaryErr := os.Stat(m.SummaryPath())
				entries = append(entries, meetingListEntry{
					Name:       m.Name,
					Video:      m.VideoPath(),
					Transcript: m.HasTranscript(),
					Summary:    summaryErr == nil,
				})
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No meetings yet. Run 'datachat meeting transcribe <video>'.")
				return nil
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-40s transcript:%-5v summary:%v\n", truncate(e.Name, 40), e.Transcript, e.Summary)
			}
			return nil
		},
	}
}

func newMeetingWatchCmd() *cobra.Command {
	var (
		concurrency int
		summarize   bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Transcribe every new video dropped into a folder",
		Long: `Transcribe every new video dropped into a folder.

Runs until interrupted. Each new video is imported, transcribed and,
with --summarize, summarized. Files already in the folder are ignored.`,
		Example: `  datachat meeting watch ~/Recordings --summarize`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(concurrency, "--concurrency"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Pipeline(); err != nil {
				return err
			}

			w, err := watcher.New(args[0], func(ctx context.Context, path string) error {
				m, err := a.Meeting(path)
				if err != nil {
					return err
				}
				if _, err := a.Transcribe(ctx, m, path, nil); err != nil {
					return err
				}
				a.Logger.Info("transcribed", "meeting", m.Name, "path", m.TranscriptPath())
				if !summarize {
					return nil
				}
				if _, err := a.SummarizeMeeting(ctx, m, nil, nil); err != nil {
					return err
				}
				a.Logger.Info("summarized", "meeting", m.Name, "path", m.SummaryPath())
				return nil
			}, a.Logger, concurrency)
			if err != nil {
				return err
			}
			defer w.Stop()

			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Videos processed at once")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "Summarize each meeting after transcription")
	return cmd
}

// transcribe imports and transcribes a video, reporting segment progress
func transcribe(ctx context.Context, cmd *cobra.Command, a *app.App, video string) (*media.Meeting, string, error) {
	m, err := a.Meeting(video)
	if err != nil {
		return nil, "", err
	}
	transcript, err := a.Transcribe(ctx, m, video, progressPrinter(cmd, "Transcribing segment"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to transcribe %s: %w", m.Name, err)
	}
	return m, transcript, nil
}

// indexMeeting transcribes if needed and builds a retriever over the transcript
func indexMeeting(ctx context.Context, cmd *cobra.Command, a *app.App, video string) (*models.Session, *index.Retriever, error) {
	m, _, err := transcribe(ctx, cmd, a, video)
	if err != nil {
		return nil, nil, err
	}
	doc, err := a.MeetingDocument(m)
	if err != nil {
		return nil, nil, err
	}
	r, err := a.Retriever(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index %s: %w", m.Name, err)
	}
	return models.NewSession(doc.Name), r, nil
}
