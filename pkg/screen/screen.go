package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

const (
	Size          = 128
	refreshPeriod = 500 * time.Millisecond
)

// Display renders two rows of status text.
type Display interface {
	ShowRows(top, bottom string)
}

// Framebuffer draws the rows onto a 128x128 RGB565 panel.  ShowRows only
// records the text; Loop does the drawing.
type Framebuffer struct {
	device string

	lock        sync.Mutex
	top, bottom string
	dirty       bool
}

func NewFramebuffer(device string) *Framebuffer {
	return &Framebuffer{device: device}
}

func (f *Framebuffer) ShowRows(top, bottom string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if top == f.top && bottom == f.bottom {
		return
	}
	f.top, f.bottom = top, bottom
	f.dirty = true
}

func (f *Framebuffer) Rows() (top, bottom string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.top, f.bottom
}

// Loop redraws the panel whenever the rows change and blanks it on exit.
func (f *Framebuffer) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	fb, err := os.OpenFile(f.device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring")
		return
	}
	defer fb.Close()

	ticker := time.NewTicker(refreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var blank [Size * Size * 2]byte
			_ = writeFrame(fb, blank[:])
			return
		case <-ticker.C:
		}

		f.lock.Lock()
		top, bottom, dirty := f.top, f.bottom, f.dirty
		f.dirty = false
		f.lock.Unlock()
		if !dirty {
			continue
		}

		if err := writeFrame(fb, EncodeRGB565(Render(top, bottom))); err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
	}
}

// Render draws the two rows.
func Render(top, bottom string) image.Image {
	dc := gg.NewContext(Size, Size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawStringAnchored(top, Size/2, Size/3, 0.5, 0.5)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(bottom, Size/2, 2*Size/3, 0.5, 0.5)
	return dc.Image()
}

// EncodeRGB565 converts img to the panel's layout: the panel is mounted
// rotated, so columns of the image become rows of the buffer.
func EncodeRGB565(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}

func writeFrame(w io.WriteSeeker, buf []byte) error {
	if _, err := w.Seek(0, 0); err != nil {
		return err
	}
	// The SPI panel driver drops data on large writes; send a row at a time.
	for i := 0; i < len(buf); i += Size * 2 {
		if _, err := w.Write(buf[i : i+Size*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

// Console prints rows instead of drawing them, for running without a panel.
type Console struct {
	lock        sync.Mutex
	top, bottom string
}

func (c *Console) ShowRows(top, bottom string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if top == c.top && bottom == c.bottom {
		return
	}
	c.top, c.bottom = top, bottom
	fmt.Printf("SCR: %s | %s\n", top, bottom)
}
