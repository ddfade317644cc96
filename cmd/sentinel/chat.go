package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sentinel"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/engine"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/playback"
)

type chatOptions struct {
	agentID    string
	research   bool
	voice      bool
	exportPath string
}

func newChatCmd(a *app) *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation with an agent",
		Long: `Start an interactive conversation with an agent.

Lines starting with a slash are commands:
  /research         enable research mode for the next message
  /attach <path>    attach a file to the next message
  /promote [cat]    promote the last reply to global knowledge
  /export <path>    write the transcript to a file
  /quit             leave the conversation`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("voice") {
				opts.voice = a.cfg.Voice
			}
			return a.chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "agent id to talk to")
	cmd.Flags().BoolVar(&opts.research, "research", false, "keep research mode on for every message")
	cmd.Flags().BoolVar(&opts.voice, "voice", false, "request speech after each reply")
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "write the transcript to this file on exit")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

// revealPrinter writes only the newly revealed suffix of each step.
type revealPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func (p *revealPrinter) reset() {
	p.mu.Lock()
	p.printed = 0
	p.mu.Unlock()
}

func (p *revealPrinter) update(visible string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(visible) <= p.printed {
		return
	}
	fmt.Fprint(p.w, visible[p.printed:])
	p.printed = len(visible)
}

func (a *app) chat(ctx context.Context, in io.Reader, out io.Writer, opts chatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := a.s.OpenSession(ctx, opts.agentID, opts.voice)
	if err != nil {
		return err
	}
	agent, err := a.s.Store().GetAgent(ctx, sc.AgentID)
	if err != nil {
		return err
	}

	printer := &revealPrinter{w: out}
	revealed := make(chan struct{}, 1)
	ctrl := playback.NewController(func(o *playback.Options) {
		o.Interval = a.cfg.RevealInterval
		o.Speaker = logSpeaker{logger: a.logger}
		o.VoiceEnabled = opts.voice
		o.Voice = agent.VoiceProfile
		o.OnReveal = printer.update
		o.OnState = func(from, to playback.State) {
			if from == playback.StateRevealing {
				select {
				case revealed <- struct{}{}:
				default:
				}
			}
		}
		o.Logger = a.logger
	})
	defer ctrl.Close()

	fmt.Fprintf(out, "Connected to %s (%s). Type /quit to leave.\n", agent.Name, agent.Rank)

	var (
		research   bool
		attachment *engine.Attachment
		lastReply  string
	)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "/") {
			cmd, arg, _ := strings.Cut(line, " ")
			arg = strings.TrimSpace(arg)
			switch cmd {
			case "/quit", "/exit":
				return a.finishChat(ctx, sc, opts.exportPath)
			case "/research":
				research = true
				fmt.Fprintln(out, "Research mode armed for the next message.")
			case "/attach":
				att, err := readAttachment(arg)
				if err != nil {
					fmt.Fprintln(out, "Attach failed:", err)
					continue
				}
				attachment = att
				fmt.Fprintf(out, "Attached %s (%s).\n", att.Name, att.ContentType)
			case "/promote":
				if lastReply == "" {
					fmt.Fprintln(out, "Nothing to promote yet.")
					continue
				}
				k, err := a.s.Engine().PromoteKnowledge(ctx, promoteTitle(lastReply), lastReply, arg)
				if err != nil {
					fmt.Fprintln(out, "Promote failed:", err)
					continue
				}
				fmt.Fprintf(out, "Promoted to global knowledge as %q.\n", k.Title)
			case "/export":
				if err := writeTranscript(ctx, a.s, sc, arg); err != nil {
					fmt.Fprintln(out, "Export failed:", err)
					continue
				}
				fmt.Fprintln(out, "Transcript written to", arg)
			default:
				fmt.Fprintln(out, "Unknown command", cmd)
			}
			continue
		}

		if line == "" && attachment == nil {
			continue
		}

		res, err := a.s.Send(ctx, sc, line, func(r *engine.TurnRequest) {
			r.ResearchMode = research || opts.research
			r.Attachment = attachment
		})
		research, attachment = false, nil

		var tErr *engine.TurnError
		if err != nil && !errors.As(err, &tErr) {
			return err
		}
		if err != nil {
			a.logger.Debug("turn aborted", "outcome", tErr.Outcome, "error", tErr.Err)
		}
		if res.Notice != "" {
			fmt.Fprintln(out, res.Notice)
		}

		fmt.Fprintf(out, "%s: ", agent.Name)
		printer.reset()
		if err := ctrl.Reveal(res.Message); err != nil {
			return err
		}
		select {
		case <-revealed:
		case <-ctx.Done():
			return ctx.Err()
		}
		fmt.Fprintln(out)

		if err == nil && res.Outcome == engine.OutcomeCompleted {
			lastReply = res.Message
		}
		if res.RosterRefreshed {
			fmt.Fprintf(out, "[roster updated: %d agents]\n", len(a.s.Engine().Roster()))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return a.finishChat(ctx, sc, opts.exportPath)
}

func (a *app) finishChat(ctx context.Context, sc core.SessionContext, exportPath string) error {
	defer a.s.Engine().Sessions().Close(sc.SessionID)
	if exportPath == "" {
		return nil
	}
	return writeTranscript(ctx, a.s, sc, exportPath)
}

func writeTranscript(ctx context.Context, s *sentinel.Sentinel, sc core.SessionContext, path string) error {
	if path == "" {
		return errors.New("export path is required")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.ExportTranscript(ctx, f, sc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readAttachment(path string) (*engine.Attachment, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &engine.Attachment{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

func promoteTitle(reply string) string {
	r := []rune(strings.TrimSpace(reply))
	if len(r) <= 50 {
		return string(r)
	}
	return string(r[:50]) + "..."
}

// logSpeaker stands in for speech synthesis on a terminal: it records the
// request and completes at once.
type logSpeaker struct {
	logger logging.Logger
}

func (s logSpeaker) Speak(_ context.Context, text, voice string) (playback.Utterance, error) {
	s.logger.Debug("speech requested", "voice", voice, "chars", len(text))
	done := make(chan error)
	close(done)
	return doneUtterance{done: done}, nil
}

type doneUtterance struct {
	done chan error
}

func (doneUtterance) Pause() error { return nil }

func (doneUtterance) Resume() error { return nil }

func (doneUtterance) Cancel() error { return nil }

func (u doneUtterance) Done() <-chan error { return u.done }
