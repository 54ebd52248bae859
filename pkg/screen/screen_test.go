package screen

import (
	"image"
	"image/color"
	"testing"
)

func TestEncodeRGB565(t *testing.T) {
	buf := EncodeRGB565(image.NewUniform(color.RGBA{R: 255, A: 255}))
	if len(buf) != Size*Size*2 {
		t.Fatalf("Unexpected buffer size %d", len(buf))
	}
	if buf[0] != 0x00 || buf[1] != 0xf8 {
		t.Errorf("Expected red as f8 00, got %02x %02x", buf[1], buf[0])
	}

	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	img.Set(0, Size-1, color.RGBA{B: 255, A: 255})
	buf = EncodeRGB565(img)
	if buf[0] != 0x1f || buf[1] != 0 {
		t.Errorf("Expected bottom-left blue pixel first, got %02x %02x", buf[1], buf[0])
	}
}

func TestRender(t *testing.T) {
	img := Render("LEADER", "x=0 y=0")
	if b := img.Bounds(); b.Dx() != Size || b.Dy() != Size {
		t.Errorf("Unexpected image size %v", b)
	}
}

func TestFramebufferRows(t *testing.T) {
	f := NewFramebuffer("/dev/null")
	f.ShowRows("a", "b")
	if !f.dirty {
		t.Error("Expected new rows to mark the frame dirty")
	}
	f.dirty = false
	f.ShowRows("a", "b")
	if f.dirty {
		t.Error("Did not expect unchanged rows to mark the frame dirty")
	}
	if top, bottom := f.Rows(); top != "a" || bottom != "b" {
		t.Errorf("Unexpected rows %q %q", top, bottom)
	}
}

type recorder struct {
	writes int
	bytes  int
	seeks  int
}

func (r *recorder) Write(p []byte) (int, error) {
	r.writes++
	r.bytes += len(p)
	return len(p), nil
}

func (r *recorder) Seek(offset int64, whence int) (int64, error) {
	r.seeks++
	return 0, nil
}

func TestWriteFrameInRows(t *testing.T) {
	r := &recorder{}
	if err := writeFrame(r, make([]byte, Size*Size*2)); err != nil {
		t.Fatal(err)
	}
	if r.seeks != 1 || r.writes != Size || r.bytes != Size*Size*2 {
		t.Errorf("Unexpected writes: %+v", r)
	}
}
