package display

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
)

func TestNewInfo(t *testing.T) {
	testCases := []struct {
		name                  string
		width, height         int
		tileWidth, tileHeight int
		size                  int
	}{
		{"128x64", 128, 64, 16, 8, 1024},
		{"128x32", 128, 32, 16, 4, 512},
		{"84x48", 84, 48, 11, 6, 528},
		{"64x48", 64, 48, 8, 6, 384},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := NewInfo(SSD1306, tc.width, tc.height)
			if err != nil {
				t.Fatalf("NewInfo: %v", err)
			}
			if info.TileWidth != tc.tileWidth || info.TileHeight != tc.tileHeight {
				t.Errorf("tiles = %dx%d, want %dx%d", info.TileWidth, info.TileHeight, tc.tileWidth, tc.tileHeight)
			}
			if info.BufferSize != tc.size {
				t.Errorf("BufferSize = %d, want %d", info.BufferSize, tc.size)
			}
		})
	}
}

func TestNewInfo_Invalid(t *testing.T) {
	if _, err := NewInfo(SSD1306, 0, 64); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := NewInfo(SSD1306, 128, 128); !errors.Is(err, ErrBounds) {
		t.Errorf("expected ErrBounds, got %v", err)
	}
}

func TestFramebuffer_PageLayout(t *testing.T) {
	fb, err := NewFramebuffer(SSD1306, 128, 64)
	if err != nil {
		t.Fatalf("NewFramebuffer: %v", err)
	}

	fb.Set(0, 0, On)
	fb.Set(5, 7, On)
	fb.Set(3, 9, color.White)

	buf := make([]byte, MaxBufferSize)
	if n := fb.CopyBuffer(buf); n != 1024 {
		t.Fatalf("CopyBuffer = %d, want 1024", n)
	}

	if buf[0] != 0x01 {
		t.Errorf("buf[0] = %#02x, want 0x01", buf[0])
	}
	if buf[5] != 0x80 {
		t.Errorf("buf[5] = %#02x, want 0x80", buf[5])
	}
	// second page starts at one full row of columns
	if buf[128+3] != 0x02 {
		t.Errorf("buf[131] = %#02x, want 0x02", buf[128+3])
	}

	if !fb.At(5, 7).(Mono).On {
		t.Error("pixel (5,7) should be on")
	}
	if fb.At(6, 7).(Mono).On {
		t.Error("pixel (6,7) should be off")
	}
	if fb.At(200, 0) != color.Transparent {
		t.Error("out of bounds pixel should be transparent")
	}

	fb.Set(5, 7, color.Black)
	if fb.At(5, 7).(Mono).On {
		t.Error("pixel (5,7) should be cleared")
	}
}

func TestFramebuffer_CopyBufferBoundedByDst(t *testing.T) {
	fb, _ := NewFramebuffer(SSD1306, 128, 64)
	fb.Fill(On)

	small := make([]byte, 10)
	if n := fb.CopyBuffer(small); n != 10 {
		t.Errorf("CopyBuffer = %d, want 10", n)
	}
	for i, b := range small {
		if b != 0xff {
			t.Fatalf("small[%d] = %#02x, want 0xff", i, b)
		}
	}

	fb.Clear()
	fb.CopyBuffer(small)
	for i, b := range small {
		if b != 0 {
			t.Fatalf("small[%d] = %#02x after Clear, want 0", i, b)
		}
	}
}

func TestFramebuffer_Load(t *testing.T) {
	fb, _ := NewFramebuffer(SSD1306, 128, 32)

	if n := fb.Load([]byte{0x00, 0xff, 0x0a}); n != 3 {
		t.Errorf("Load = %d, want 3", n)
	}
	if !fb.At(1, 0).(Mono).On || !fb.At(1, 7).(Mono).On {
		t.Error("column 1 of page 0 should be fully on")
	}
	if !fb.At(2, 1).(Mono).On || fb.At(2, 0).(Mono).On {
		t.Error("column 2 should have bits 1 and 3 set only")
	}
}

func TestFramebuffer_UpdateDraw(t *testing.T) {
	fb, _ := NewFramebuffer(SH1106, 128, 64)

	fb.Update(func(dst draw.Image) {
		draw.Draw(dst, image.Rect(0, 8, 128, 16), image.NewUniform(On), image.Point{}, draw.Src)
	})

	buf := make([]byte, 1024)
	fb.CopyBuffer(buf)
	for i := 0; i < 1024; i++ {
		want := byte(0)
		if i >= 128 && i < 256 {
			want = 0xff
		}
		if buf[i] != want {
			t.Fatalf("buf[%d] = %#02x, want %#02x", i, buf[i], want)
		}
	}
}

func TestFramebuffer_ConcurrentAccess(t *testing.T) {
	fb, _ := NewFramebuffer(SSD1306, 128, 64)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fb.Update(func(dst draw.Image) {
					c := Off
					if v {
						c = On
					}
					draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
				})
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			buf := make([]byte, 1024)
			for j := 0; j < 100; j++ {
				fb.CopyBuffer(buf)
				for k := 1; k < len(buf); k++ {
					if buf[k] != buf[0] {
						t.Errorf("torn snapshot at byte %d", k)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestMonoModel(t *testing.T) {
	testCases := []struct {
		in   color.Color
		want bool
	}{
		{color.White, true},
		{color.Black, false},
		{color.Transparent, false},
		{color.Gray{Y: 0x90}, true},
		{color.Gray{Y: 0x70}, false},
		{On, true},
		{Off, false},
	}

	for _, tc := range testCases {
		if got := MonoModel.Convert(tc.in).(Mono).On; got != tc.want {
			t.Errorf("Convert(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTypeString(t *testing.T) {
	if SSD1306.String() != "SSD1306" {
		t.Errorf("got %q", SSD1306.String())
	}
	if Type(42).String() != "Type(42)" {
		t.Errorf("got %q", Type(42).String())
	}
}
