package adapter

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// File replays a capture of bridge lines, one per line.
type File struct {
	BaseAdapter
}

func init() {
	if err := Register(&Info{
		Name:        "file",
		Description: "Replay a captured bridge log",
		New: func(cfg *Config) (Source, error) {
			return NewFile(cfg)
		},
	}); err != nil {
		panic(err)
	}
}

func NewFile(cfg *Config) (*File, error) {
	if cfg.File == "" {
		return nil, ErrNoFile
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &File{BaseAdapter: NewBaseAdapter("file", cfg)}, nil
}

func (f *File) Open(ctx context.Context) error {
	fh, err := f.cfg.Fs.Open(f.cfg.File)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	var total int64
	if fi, err := fh.Stat(); err == nil {
		total = fi.Size()
	}
	f.cfg.status(true, f.cfg.File)
	f.run(func() {
		defer f.cfg.status(false, f.cfg.File)
		defer fh.Close()
		f.replay(ctx, fh, total)
	})
	return nil
}

func (f *File) replay(ctx context.Context, fh afero.File, total int64) {
	var tick <-chan time.Time
	if f.cfg.Interval > 0 {
		t := time.NewTicker(f.cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	var read int64
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		read += int64(len(sc.Bytes())) + 1
		if f.cfg.OnProgress != nil {
			f.cfg.OnProgress(min(read, total), total)
		}
		var lines []string
		var splitter LineSplitter
		splitter.Feed(append(sc.Bytes(), '\n'), func(l string) { lines = append(lines, l) })
		for _, l := range lines {
			if tick != nil {
				select {
				case <-tick:
				case <-ctx.Done():
					return
				case <-f.close:
					return
				}
			}
			if !f.emit(ctx, l) {
				return
			}
		}
	}
	if err := sc.Err(); err != nil {
		f.SetError(fmt.Errorf("read capture: %w", err))
		return
	}
	if f.cfg.OnProgress != nil {
		f.cfg.OnProgress(total, total)
	}
}
