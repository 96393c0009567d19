package models

import "time"

// DisplayBuffer is the payload served by GET /api/display/getbuffer.
// Field names are part of the wire format consumed by the web display client.
type DisplayBuffer struct {
	DisplayType      int    `json:"DisplayType"`
	DisplayHeight    int    `json:"DisplayHeight"`
	DisplayWidth     int    `json:"DisplayWidth"`
	BufferTileHeight int    `json:"BufferTileHeight"`
	BufferTileWidth  int    `json:"BufferTileWidth"`
	BufferLength     int    `json:"BufferLength"`
	BufferContent    string `json:"BufferContent"` // lowercase hex
}

// BufferSnapshot is a display buffer mirrored to Redis
type BufferSnapshot struct {
	DeviceID   string        `json:"device_id"`
	Buffer     DisplayBuffer `json:"buffer"`
	CapturedAt time.Time     `json:"captured_at"`
}
