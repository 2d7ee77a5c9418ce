package canbridge

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/roffe/canbridge/parser"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestPipeline(t *testing.T, opts ...PipelineOpt) (*Pipeline, *recorder, *recorder) {
	t.Helper()
	router := NewRouter(zerolog.Nop())
	view, sink := &recorder{}, &recorder{}
	router.SetActiveSet(view, parser.SwitchStateID, parser.HarnessID)
	router.SetDefault(sink)
	p, err := NewPipeline(zerolog.Nop(), parser.NewDefaultRegistry(zerolog.Nop()), router, opts...)
	require.NoError(t, err)
	return p, view, sink
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(zerolog.Nop(), nil, NewRouter(zerolog.Nop()))
	assert.ErrorIs(t, err, ErrNilRegistry)
	_, err = NewPipeline(zerolog.Nop(), parser.NewRegistry(zerolog.Nop()), nil)
	assert.ErrorIs(t, err, ErrNilRouter)
}

func TestPipelineHandleLine(t *testing.T) {
	p, view, sink := newTestPipeline(t)

	env := p.HandleLine("CAN_RX;0x500;5A,10,34,12,00,00,00,FF")
	require.NotNil(t, env)
	require.Len(t, view.msgs, 1)
	msg := view.msgs[0]
	require.NotNil(t, msg)
	assert.Equal(t, parser.SwitchStateName, msg.ParserName)
	assert.True(t, msg.Valid())

	p.HandleLine("CAN_RX;0x100;22,01")
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, parser.BrakeSensorName, sink.msgs[0].ParserName)

	p.HandleLine("CAN_RX;0x7E8;")
	require.Len(t, sink.msgs, 2)
	assert.Nil(t, sink.msgs[1], "empty payload is not decoded")

	p.HandleLine("STATUS;ready")
	p.HandleLine("CAN_ERR;0x01;Bus off")
	assert.Nil(t, p.HandleLine("STATS;1;2;3;4"))
	require.Len(t, sink.envs, 4)

	st := p.Stats()
	assert.Equal(t, uint64(3), st.RX)
	assert.Equal(t, uint64(1), st.Info)
	assert.Equal(t, uint64(1), st.Errors)
	assert.Equal(t, uint64(1), st.Suppressed)
	assert.Equal(t, uint64(2), st.Decoded)
	assert.Equal(t, uint64(5), st.Total())
}

func TestPipelineDecoderPanicStillRoutes(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	reg := parser.NewRegistry(log)
	reg.Register(&panicky{Base: parser.NewBase("panicky", "1", "", parser.KindCustom, 1)})
	router := NewRouter(log)
	sink := &recorder{}
	router.SetDefault(sink)
	p, err := NewPipeline(log, reg, router)
	require.NoError(t, err)

	p.HandleLine("CAN_RX;0x10;01")
	require.Len(t, sink.envs, 1)
	assert.Nil(t, sink.msgs[0])
	assert.Equal(t, uint64(1), p.Stats().Undecoded)
	assert.Contains(t, buf.String(), "parser panicked")
}

type panicky struct {
	parser.Base
}

func (*panicky) CanDecode(uint32, []byte) bool { return true }
func (*panicky) DeclaredIDs() []parser.IDRange { return nil }
func (*panicky) Decode(uint32, []byte) (*parser.DecodedMessage, error) {
	var data []byte
	_ = data[4]
	return nil, nil
}

func TestPipelinePausedAndFiltered(t *testing.T) {
	f := NewFilter()
	f.Add(0x100)
	p, _, sink := newTestPipeline(t, WithFilter(f))

	p.SetPaused(true)
	assert.Nil(t, p.HandleLine("CAN_RX;0x100;22,01"))
	p.SetPaused(false)
	assert.False(t, p.Paused())

	assert.Nil(t, p.HandleLine("CAN_RX;0x101;23,80"))
	assert.NotNil(t, p.HandleLine("CAN_RX;0x100;22,01"))
	assert.Len(t, sink.envs, 1)

	st := p.Stats()
	assert.Equal(t, uint64(1), st.Paused)
	assert.Equal(t, uint64(1), st.Filtered)
}

func TestPipelineRun(t *testing.T) {
	p, view, _ := newTestPipeline(t)
	lines := make(chan string, 3)
	lines <- "CAN_RX;0x410;00,00,00,00,01,00,00,AA"
	lines <- "CAN_RX;0x410;00,00,00,00,05,00,00,AA"
	close(lines)

	require.NoError(t, p.Run(context.Background(), lines))
	require.Len(t, view.msgs, 2)
	seq, _ := view.msgs[1].Field("Sequence Counter")
	assert.Equal(t, parser.StatusWarning, seq.Status())
}

func TestPipelineRunCancel(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Run(ctx, make(chan string)), context.DeadlineExceeded)
}

func TestPipelineConnectionEvents(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	var warnings, all []Event
	p.OnEvent(EventHandler{Type: EventTypeWarning, Handler: func(e Event) { warnings = append(warnings, e) }})
	p.OnEvent(EventHandler{Type: EventTypeDebug, Handler: func(e Event) { all = append(all, e) }})

	p.ConnectionChanged(true, "/dev/ttyACM0")
	p.ConnectionChanged(false, "/dev/ttyACM0")

	assert.Len(t, all, 2)
	if assert.Len(t, warnings, 1) {
		assert.False(t, warnings[0].Connected)
		assert.Equal(t, "[WARN] disconnected from /dev/ttyACM0", warnings[0].String())
	}
	assert.True(t, all[0].Connected)
	assert.NotEmpty(t, p.Session().String())
}
