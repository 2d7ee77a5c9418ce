package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/roffe/canbridge"
	"github.com/roffe/canbridge/parser"
	"github.com/roffe/canbridge/pkg/canid"
)

// view owns a set of CAN ids in the router and prints one compact line per
// frame with the fields it cares about.
type view struct {
	name   string
	ids    []uint32
	fields []string
}

var views = map[string]view{
	"switch": {
		name:   "switch",
		ids:    []uint32{parser.SwitchStateID},
		fields: []string{"Operational State", "Direction", "Active Switch Count", "Time Delta"},
	},
	"harness": {
		name:   "harness",
		ids:    []uint32{parser.HarnessID},
		fields: []string{"Vehicle State", "Direction", "Drive Mode", "Throttle Position", "Brake Pressure", "Sequence Counter", "CRC8"},
	},
	"sensors": {
		name:   "sensors",
		ids:    []uint32{parser.BrakeSensorID, parser.ThrottleSensorID},
		fields: []string{"Brake State", "Throttle Position", "Throttle State"},
	},
}

func viewNames() []string {
	names := make([]string, 0, len(views))
	for n := range views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupView(name string) (view, error) {
	v, found := views[name]
	if !found {
		return view{}, fmt.Errorf("unknown view %q, one of %s", name, strings.Join(viewNames(), ", "))
	}
	return v, nil
}

type viewConsumer struct {
	view
	mu  sync.Mutex
	out io.Writer
}

func newViewConsumer(v view, out io.Writer) *viewConsumer {
	return &viewConsumer{view: v, out: out}
}

func (c *viewConsumer) OnMessage(env *canbridge.Envelope, msg *parser.DecodedMessage) {
	id, _ := env.ID()
	var line strings.Builder
	fmt.Fprintf(&line, "[%s] %s", c.name, canid.Format(id))
	if msg == nil {
		line.WriteString(" undecoded")
	} else {
		for _, name := range c.fields {
			f, found := msg.Field(name)
			if !found {
				continue
			}
			fmt.Fprintf(&line, " %s=%s", name, f.FormatValue())
			if f.Unit() != "" {
				line.WriteString(f.Unit())
			}
		}
		if !msg.Valid() {
			line.WriteString(" " + errf("INVALID"))
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line.String())
}
