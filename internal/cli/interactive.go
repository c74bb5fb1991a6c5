package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/terasu/internal/highlight"
	"github.com/hyperjump/terasu/internal/query"
	"github.com/hyperjump/terasu/internal/session"
)

const replHelp = `Type a query and press enter to search.

Commands:
  :open N   show result N with matches highlighted
  :close    clear the open document
  :help     show this help
  :quit     exit`

// REPL is the interactive search loop. Each line is either a command
// (prefixed with ':') or a query submitted to the session.
type REPL struct {
	session  *session.Session
	renderer *Renderer
	in       io.Reader
	out      io.Writer
	updates  chan session.Snapshot
}

// NewREPL creates an interactive loop around the session. Attach it before
// submitting anything: it registers the session listener.
func NewREPL(sess *session.Session, renderer *Renderer, in io.Reader, out io.Writer) *REPL {
	r := &REPL{
		session:  sess,
		renderer: renderer,
		in:       in,
		out:      out,
		updates:  make(chan session.Snapshot, 16),
	}
	sess.SetListener(r.onUpdate)
	return r
}

// onUpdate runs inside the session's notification path, so it only hands the
// snapshot off to the loop. Drops are fine: only the settled state matters.
func (r *REPL) onUpdate(snap session.Snapshot) {
	select {
	case r.updates <- snap:
	default:
	}
}

// Run reads lines until EOF or :quit.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "terasu interactive search (:help for commands)")
	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "terasu> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			if quit := r.runCommand(strings.TrimSpace(line)); quit {
				return nil
			}
			continue
		}
		r.search(ctx, line)
	}
}

func (r *REPL) runCommand(line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprintln(r.out, replHelp)
	case ":close":
		r.session.ClearSelection()
		fmt.Fprintln(r.out, "document closed")
	case ":open", ":o":
		if len(fields) != 2 {
			fmt.Fprintln(r.out, "usage: :open N")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintln(r.out, "usage: :open N")
			return false
		}
		r.open(n)
	default:
		fmt.Fprintf(r.out, "unknown command %q (:help for commands)\n", fields[0])
	}
	return false
}

// search submits the line and waits for the session to settle on this
// submission. Snapshots from earlier generations (selection echoes,
// superseded searches) are skipped.
func (r *REPL) search(ctx context.Context, line string) {
	r.session.Submit(ctx, line)
	gen := r.session.Snapshot().Generation
	for {
		var snap session.Snapshot
		select {
		case snap = <-r.updates:
		case <-ctx.Done():
			return
		}
		if snap.Generation != gen {
			continue
		}
		switch snap.Phase {
		case session.PhaseLoading:
			continue
		case session.PhaseError:
			fmt.Fprintf(r.out, "error: %s\n", snap.Message)
			return
		case session.PhaseResults:
			r.renderResults(snap)
			return
		default:
			return
		}
	}
}

func (r *REPL) renderResults(snap session.Snapshot) {
	matcher := highlight.NewMatcher(query.Tokenize(snap.Query))
	for i, doc := range snap.Results {
		writeOneResult(r.out, i+1, doc, r.renderer, matcher)
	}
	fmt.Fprintf(r.out, "%d results (:open N to inspect)\n", len(snap.Results))
}

func (r *REPL) open(n int) {
	if err := r.session.Select(n - 1); err != nil {
		fmt.Fprintf(r.out, "error: %s\n", err)
		return
	}
	snap := r.session.Snapshot()
	if snap.Selected == nil {
		return
	}
	matcher := highlight.NewMatcher(query.Tokenize(snap.Query))
	fmt.Fprintln(r.out)
	WriteDocument(r.out, snap.Selected, r.renderer, matcher)
	fmt.Fprintln(r.out)
}
