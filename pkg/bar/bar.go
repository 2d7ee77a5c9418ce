// Package bar renders replay progress for capture files.
package bar

import (
	"io"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

// New returns a byte counting bar for a capture of size bytes.
func New(size int64, text string) *progressbar.ProgressBar {
	return NewWriter(ansi.NewAnsiStdout(), size, text)
}

func NewWriter(w io.Writer, size int64, text string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("[cyan]"+text+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Progress adapts a bar to a read/total callback. The bar is resized when
// the total changes.
func Progress(b *progressbar.ProgressBar) func(read, total int64) {
	return func(read, total int64) {
		if total > 0 && b.GetMax64() != total {
			b.ChangeMax64(total)
		}
		_ = b.Set64(read)
	}
}
