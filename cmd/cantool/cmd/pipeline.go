package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roffe/canbridge"
	"github.com/roffe/canbridge/adapter"
	"github.com/roffe/canbridge/parser"
	"github.com/roffe/canbridge/pkg/canid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	flagFields = "fields"
	flagQuiet  = "quiet"
	flagHideRX = "hide-rx"
	flagHideTX = "hide-tx"
	flagView   = "view"
)

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool(flagFields, true, "print decoded fields")
	f.BoolP(flagQuiet, "q", false, "only print the summary")
	f.Bool(flagHideRX, false, "hide received frames")
	f.Bool(flagHideTX, false, "hide transmitted frames")
	f.String(flagView, "", "compact view owning its CAN ids: "+strings.Join(viewNames(), ", "))
}

// parseIDs reads CAN id filter arguments, "0x" prefix optional.
func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, a := range args {
		for _, s := range strings.Split(a, ",") {
			if s == "" {
				continue
			}
			id, err := canid.ParseHex(s)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", s, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type session struct {
	pipeline *canbridge.Pipeline
	summary  *summary
}

// newSession wires registry, router, filter and output for a command.
func newSession(cmd *cobra.Command, ids []uint32) (*session, error) {
	reg, err := loadRegistry(cmd)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	quiet, _ := f.GetBool(flagQuiet)
	fields, _ := f.GetBool(flagFields)
	hideRX, _ := f.GetBool(flagHideRX)
	hideTX, _ := f.GetBool(flagHideTX)

	filter := canbridge.NewFilter()
	filter.Show(canbridge.KindRX, !hideRX)
	filter.Show(canbridge.KindTX, !hideTX)
	for _, id := range ids {
		filter.Add(id)
	}

	router := canbridge.NewRouter(appLog())
	sum := newSummary()
	if quiet {
		router.SetDefault(sum)
	} else {
		p := newPrinter(cmd.OutOrStdout(), fields)
		router.SetDefault(canbridge.ConsumerFunc(func(env *canbridge.Envelope, msg *parser.DecodedMessage) {
			sum.OnMessage(env, msg)
			p.OnMessage(env, msg)
		}))
	}

	if name, _ := f.GetString(flagView); name != "" {
		v, err := lookupView(name)
		if err != nil {
			return nil, err
		}
		router.SetActiveSet(newViewConsumer(v, cmd.OutOrStdout()), v.ids...)
	}

	p, err := canbridge.NewPipeline(appLog(), reg, router,
		canbridge.WithFilter(filter),
		canbridge.WithEventHandler(canbridge.EventHandler{
			Type: canbridge.EventTypeInfo,
			Handler: func(e canbridge.Event) {
				fmt.Fprintln(cmd.ErrOrStderr(), e.String())
			},
		}),
	)
	if err != nil {
		return nil, err
	}
	return &session{pipeline: p, summary: sum}, nil
}

// run opens src and feeds it through the pipeline until the source ends or
// ctx is cancelled.
func (s *session) run(ctx context.Context, src adapter.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := s.pipeline.Run(gctx, src.Lines())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err := <-src.Err():
				s.pipeline.Emit(canbridge.Event{Type: canbridge.EventTypeError, Details: err.Error()})
			}
		}
	})
	return g.Wait()
}

func (s *session) printSummary(cmd *cobra.Command) {
	st := s.pipeline.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, st.String())
	s.summary.mu.Lock()
	defer s.summary.mu.Unlock()
	for _, id := range sortedIDs(s.summary.byID) {
		fmt.Fprintf(out, "  %s %d\n", canid.Format(id), s.summary.byID[id])
	}
	if s.summary.invalid > 0 {
		fmt.Fprintln(out, errf("  %d frames failed validation", s.summary.invalid))
	}
}
