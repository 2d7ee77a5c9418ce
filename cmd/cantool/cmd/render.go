package cmd

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"
	"github.com/roffe/canbridge"
	"github.com/roffe/canbridge/parser"
)

var (
	warnf = color.New(color.FgYellow).SprintfFunc()
	errf  = color.New(color.FgRed).SprintfFunc()
	dimf  = color.New(color.Faint).SprintfFunc()
)

// printer writes every routed envelope and its decoded fields.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	fields bool
}

func newPrinter(out io.Writer, fields bool) *printer {
	return &printer{out: out, fields: fields}
}

func (p *printer) OnMessage(env *canbridge.Envelope, msg *parser.DecodedMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, env.ColorString())
	if msg == nil {
		return
	}
	fmt.Fprintf(p.out, "  %s %s (%s, confidence %.0f%%)\n", msg.MessageType, dimf("%s", msg.MessageName), msg.ParserName, msg.Confidence()*100)
	if !p.fields {
		return
	}
	for _, f := range msg.Fields() {
		line := "    " + f.String()
		switch f.Status() {
		case parser.StatusWarning:
			line = warnf("%s", line)
		case parser.StatusError:
			line = errf("%s", line)
		}
		fmt.Fprintln(p.out, line)
	}
	for _, e := range msg.Errors() {
		fmt.Fprintln(p.out, errf("  error: %s", e))
	}
	for _, w := range msg.Warnings() {
		fmt.Fprintln(p.out, warnf("  warning: %s", w))
	}
}

// summary is a consumer that only counts, used when output is suppressed.
type summary struct {
	mu      sync.Mutex
	byID    map[uint32]int
	invalid int
}

func newSummary() *summary {
	return &summary{byID: make(map[uint32]int)}
}

func (s *summary) OnMessage(env *canbridge.Envelope, msg *parser.DecodedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := env.ID(); ok {
		s.byID[id]++
	}
	if msg != nil && !msg.Valid() {
		s.invalid++
	}
}

func sortedIDs(m map[uint32]int) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
