package adapter

import "bytes"

// LineSplitter assembles lines from arbitrary read chunks. Carriage returns
// and blank lines are dropped.
type LineSplitter struct {
	buf bytes.Buffer
}

// Feed appends chunk and calls emit for every completed line.
func (s *LineSplitter) Feed(chunk []byte, emit func(string)) {
	for _, b := range chunk {
		switch b {
		case '\r':
		case '\n':
			if s.buf.Len() > 0 {
				emit(s.buf.String())
				s.buf.Reset()
			}
		default:
			s.buf.WriteByte(b)
		}
	}
}

// Pending is the partial line waiting for its newline.
func (s *LineSplitter) Pending() string {
	return s.buf.String()
}

func (s *LineSplitter) Reset() {
	s.buf.Reset()
}
