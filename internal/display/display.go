// Package display renders result images inline in terminals that
// speak the kitty graphics protocol.
package display

import (
	"fmt"
	"io"

	"github.com/gemimg/gemimg/pkg/models"
)

type Displayer struct {
	out io.Writer
}

func New(out io.Writer) *Displayer {
	return &Displayer{out: out}
}

func (d *Displayer) Display(img *models.ResultImage) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("image has no data")
	}

	enc := NewKittyEncoder(d.out)
	if err := enc.Encode(img.Data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}
