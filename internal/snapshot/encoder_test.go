package snapshot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/koios/webdisplay/internal/display"
	"github.com/koios/webdisplay/pkg/models"
)

// fakeDriver reports a fixed geometry and buffer. reported overrides the
// returned byte count when non-zero, to simulate misbehaving drivers.
type fakeDriver struct {
	info     display.Info
	buf      []byte
	reported int
	capacity int
}

func (d *fakeDriver) DisplayInfo() display.Info {
	return d.info
}

func (d *fakeDriver) CopyBuffer(dst []byte) int {
	d.capacity = len(dst)
	n := copy(dst, d.buf)
	if d.reported != 0 {
		return d.reported
	}
	return n
}

var testInfo = display.Info{
	Type:       1,
	Height:     64,
	Width:      128,
	TileHeight: 8,
	TileWidth:  8,
}

func TestEncode_Scenario(t *testing.T) {
	driver := &fakeDriver{info: testInfo, buf: []byte{0x00, 0xFF, 0x0A}}

	got, err := NewEncoder(driver).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := models.DisplayBuffer{
		DisplayType:      1,
		DisplayHeight:    64,
		DisplayWidth:     128,
		BufferTileHeight: 8,
		BufferTileWidth:  8,
		BufferLength:     3,
		BufferContent:    "00ff0a",
	}
	if *got != want {
		t.Errorf("got %+v, want %+v", *got, want)
	}
	if driver.capacity != MaxLen {
		t.Errorf("driver was given capacity %d, want %d", driver.capacity, MaxLen)
	}
}

func TestEncode_Empty(t *testing.T) {
	got, err := NewEncoder(&fakeDriver{info: testInfo}).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.BufferLength != 0 {
		t.Errorf("BufferLength = %d, want 0", got.BufferLength)
	}
	if got.BufferContent != "" {
		t.Errorf("BufferContent = %q, want empty", got.BufferContent)
	}
}

func TestEncode_FullBuffer(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAB}, MaxLen)
	got, err := NewEncoder(&fakeDriver{info: testInfo, buf: buf}).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.BufferLength != 1024 {
		t.Errorf("BufferLength = %d, want 1024", got.BufferLength)
	}
	if len(got.BufferContent) != 2048 {
		t.Errorf("len(BufferContent) = %d, want 2048", len(got.BufferContent))
	}
	if got.BufferContent != strings.Repeat("ab", 1024) {
		t.Error("BufferContent was truncated or altered")
	}
}

func TestEncode_DriverOverflow(t *testing.T) {
	testCases := []struct {
		name     string
		reported int
	}{
		{"one past capacity", MaxLen + 1},
		{"far past capacity", 1 << 20},
		{"negative", -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			driver := &fakeDriver{
				info:     testInfo,
				buf:      make([]byte, 4*MaxLen),
				reported: tc.reported,
			}
			got, err := NewEncoder(driver).Encode()
			if !errors.Is(err, ErrDriverOverflow) {
				t.Fatalf("expected ErrDriverOverflow, got %v", err)
			}
			if got != nil {
				t.Errorf("expected no payload, got %+v", got)
			}
		})
	}
}

func TestEncode_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		n := rng.Intn(MaxLen + 1)
		buf := make([]byte, n)
		rng.Read(buf)

		enc := NewEncoder(&fakeDriver{info: testInfo, buf: buf})
		first, err := enc.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}

		if first.BufferLength > MaxLen {
			t.Fatalf("BufferLength %d exceeds %d", first.BufferLength, MaxLen)
		}
		if len(first.BufferContent) != 2*first.BufferLength {
			t.Fatalf("len(BufferContent) = %d, want %d", len(first.BufferContent), 2*first.BufferLength)
		}
		if first.BufferContent != strings.ToLower(first.BufferContent) {
			t.Fatal("BufferContent must be lowercase")
		}

		decoded, err := hex.DecodeString(first.BufferContent)
		if err != nil {
			t.Fatalf("DecodeString: %v", err)
		}
		if !bytes.Equal(decoded, buf) {
			t.Fatal("hex content does not round-trip")
		}

		second, err := enc.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if *first != *second {
			t.Fatal("consecutive snapshots differ without a display update")
		}
	}
}

func TestEncode_Framebuffer(t *testing.T) {
	fb, err := display.NewFramebuffer(display.SSD1306, 128, 64)
	if err != nil {
		t.Fatalf("NewFramebuffer: %v", err)
	}
	fb.Set(0, 0, display.On)

	got, err := NewEncoder(fb).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.DisplayType != int(display.SSD1306) {
		t.Errorf("DisplayType = %d, want %d", got.DisplayType, display.SSD1306)
	}
	if got.BufferTileWidth != 16 || got.BufferTileHeight != 8 {
		t.Errorf("tiles = %dx%d, want 16x8", got.BufferTileWidth, got.BufferTileHeight)
	}
	if got.BufferLength != 1024 {
		t.Errorf("BufferLength = %d, want 1024", got.BufferLength)
	}
	if !strings.HasPrefix(got.BufferContent, "0100") {
		t.Errorf("BufferContent starts with %q", got.BufferContent[:4])
	}
}
