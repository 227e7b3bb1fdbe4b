package client

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

var (
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle  = lipgloss.NewStyle().Faint(true)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	blankLines = regexp.MustCompile(`\n{3,}`)
)

// TerminalView renders the flows as lines on a terminal. Ready fires once
// the chat section is shown, Failed carries setup alerts and Idle fires each
// time the loading indicator goes away.
type TerminalView struct {
	mu     sync.Mutex
	out    io.Writer
	strip  *bluemonday.Policy
	ready  chan struct{}
	failed chan string
	idle   chan struct{}
	shown  bool
}

func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{
		out:    out,
		strip:  bluemonday.StrictPolicy(),
		ready:  make(chan struct{}),
		failed: make(chan string, 1),
		idle:   make(chan struct{}, 1),
	}
}

func (v *TerminalView) Ready() <-chan struct{} { return v.ready }
func (v *TerminalView) Failed() <-chan string  { return v.failed }
func (v *TerminalView) Idle() <-chan struct{}  { return v.idle }

// GraphWriter is where the graph chain is drawn.
func (v *TerminalView) GraphWriter() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		v.println(graphStyle.Render("files: " + strings.TrimRight(string(p), "\n")))
		return len(p), nil
	})
}

func (v *TerminalView) ShowSetup(bool) {}

func (v *TerminalView) ShowChat(visible bool) {
	if !visible {
		return
	}
	v.mu.Lock()
	first := !v.shown
	v.shown = true
	v.mu.Unlock()
	if first {
		v.println(infoStyle.Render("Assistant ready. Ask a question, or 'exit' to quit."))
		close(v.ready)
	}
}

func (v *TerminalView) SetSetupBusy(busy bool) {
	if busy {
		v.println(infoStyle.Render("Initializing..."))
	}
}

func (v *TerminalView) Alert(message string) {
	v.println(alertStyle.Render(message))
	select {
	case v.failed <- message:
	default:
	}
}

func (v *TerminalView) SetLoading(visible bool) {
	if visible {
		v.println(infoStyle.Render("Thinking..."))
		return
	}
	select {
	case v.idle <- struct{}{}:
	default:
	}
}

func (v *TerminalView) SetResponse(markup string) {
	if markup == "" {
		return
	}
	v.println(v.plain(markup))
}

func (v *TerminalView) ShowError(message string) {
	v.println(errorStyle.Render("Error: " + message))
}

func (v *TerminalView) ShowGraph(bool) {}

func (v *TerminalView) ClearInput() {}

func (v *TerminalView) plain(markup string) string {
	text := html.UnescapeString(v.strip.Sanitize(markup))
	text = blankLines.ReplaceAllString(strings.TrimSpace(text), "\n\n")
	return text
}

func (v *TerminalView) println(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, s)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
