package bar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressResizes(t *testing.T) {
	var buf bytes.Buffer
	b := NewWriter(&buf, 100, "replay")
	fn := Progress(b)

	fn(40, 100)
	assert.Equal(t, int64(100), b.GetMax64())

	fn(50, 200)
	assert.Equal(t, int64(200), b.GetMax64())

	fn(10, 0)
	assert.Equal(t, int64(200), b.GetMax64())
	assert.Contains(t, buf.String(), "replay")
}
