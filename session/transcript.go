package session

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/sentinel/core"
)

// Speaker roles in a transcript.
const (
	RoleOperator = "operator"
	RoleAgent    = "agent"
	RoleSystem   = "system"
)

// Line is one visible message.
type Line struct {
	Role       string
	Text       string
	Attachment *core.FileRef
	At         time.Time
}

// Transcript is the ordered list of messages shown in a session.
type Transcript struct {
	mu    sync.RWMutex
	lines []Line
	now   func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{now: func() time.Time { return time.Now().UTC() }}
}

// Add appends a line.
func (t *Transcript) Add(role, text string, attachment *core.FileRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, Line{Role: role, Text: text, Attachment: attachment, At: t.now()})
}

// Lines returns a snapshot of all lines.
func (t *Transcript) Lines() []Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Line(nil), t.lines...)
}

// Clear drops all lines.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

// Export writes a plain-text transcript: a header naming the agent, then one
// paragraph per line. Operator lines are labelled OPERATOR; agent and system
// lines carry the agent name.
func (t *Transcript) Export(w io.Writer, agentName string) error {
	if agentName == "" {
		agentName = "Agent"
	}
	lines := t.Lines()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Conversation with %s on %s\n\n", agentName, t.now().Format(time.RFC1123))
	for i, l := range lines {
		if i > 0 {
			bw.WriteString("\n\n")
		}
		label := agentName
		if l.Role == RoleOperator {
			label = "OPERATOR"
		}
		fmt.Fprintf(bw, "%s: %s", label, l.Text)
		if l.Attachment != nil {
			fmt.Fprintf(bw, "\n[ATTACHMENT: %s (%s)]", l.Attachment.Name, l.Attachment.ContentType)
		}
	}
	if len(lines) > 0 {
		bw.WriteString("\n")
	}
	return bw.Flush()
}
