package jp2test

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// Tracker wraps a real codec and counts the handles it has handed out
// and not yet seen closed
type Tracker struct {
	jp2.Codec

	mu   sync.Mutex
	live int
}

// Track wraps c
func Track(c jp2.Codec) *Tracker {
	return &Tracker{Codec: c}
}

// Live returns the number of open handles
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

type handle struct {
	t      *Tracker
	closed bool
}

func (t *Tracker) open() *handle {
	t.mu.Lock()
	t.live++
	t.mu.Unlock()
	return &handle{t: t}
}

func (h *handle) close(c io.Closer) error {
	h.t.mu.Lock()
	if !h.closed {
		h.closed = true
		h.t.live--
	}
	h.t.mu.Unlock()
	return c.Close()
}

type trackedStream struct {
	jp2.Stream
	h *handle
}

func (s *trackedStream) Close() error { return s.h.close(s.Stream) }

type trackedDecoder struct {
	jp2.Decoder
	t *Tracker
	h *handle
}

type trackedImage struct {
	jp2.Image
	h *handle
}

func (i *trackedImage) Close() error { return i.h.close(i.Image) }

type trackedInfo struct {
	jp2.InfoHandle
	h *handle
}

func (i *trackedInfo) Close() error { return i.h.close(i.InfoHandle) }

// NewStream implements jp2.Codec
func (t *Tracker) NewStream(f *os.File) (jp2.Stream, error) {
	s, err := t.Codec.NewStream(f)
	if err != nil || s == nil {
		return nil, err
	}
	return &trackedStream{Stream: s, h: t.open()}, nil
}

// NewDecoder implements jp2.Codec
func (t *Tracker) NewDecoder(diag jp2.Diagnostics) (jp2.Decoder, error) {
	d, err := t.Codec.NewDecoder(diag)
	if err != nil || d == nil {
		return nil, err
	}
	return &trackedDecoder{Decoder: d, t: t, h: t.open()}, nil
}

func (d *trackedDecoder) Close() error { return d.h.close(d.Decoder) }

func (d *trackedDecoder) ReadHeader(s jp2.Stream) (jp2.Image, error) {
	img, err := d.Decoder.ReadHeader(unwrapStream(s))
	if img == nil {
		return nil, err
	}
	return &trackedImage{Image: img, h: d.t.open()}, err
}

func (d *trackedDecoder) DecodeTile(s jp2.Stream, img jp2.Image, tileIndex int) error {
	if ti, ok := img.(*trackedImage); ok {
		img = ti.Image
	}
	return d.Decoder.DecodeTile(unwrapStream(s), img, tileIndex)
}

func (d *trackedDecoder) CodestreamInfo() (jp2.InfoHandle, error) {
	info, err := d.Decoder.CodestreamInfo()
	if err != nil || info == nil {
		return nil, err
	}
	return &trackedInfo{InfoHandle: info, h: d.t.open()}, nil
}

func unwrapStream(s jp2.Stream) jp2.Stream {
	if ts, ok := s.(*trackedStream); ok {
		return ts.Stream
	}
	return s
}

// Box encodes a JP2 box with a 32-bit length
func Box(typ string, payload []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(8+len(payload)))
	buf.WriteString(typ)
	buf.Write(payload)
	return buf.Bytes()
}

// WrapCodestream builds signature, ftyp, jp2h and jp2c boxes around a raw
// codestream of unsigned samples
func WrapCodestream(cs []byte, width, height, comps, precision int) []byte {
	var ihdr bytes.Buffer
	_ = binary.Write(&ihdr, binary.BigEndian, uint32(height))
	_ = binary.Write(&ihdr, binary.BigEndian, uint32(width))
	_ = binary.Write(&ihdr, binary.BigEndian, uint16(comps))
	ihdr.Write([]byte{byte(precision - 1), 7, 0, 0})

	colorspace := uint32(16) // sRGB
	if comps == 1 {
		colorspace = 17 // greyscale
	}
	var colr bytes.Buffer
	colr.Write([]byte{1, 0, 0})
	_ = binary.Write(&colr, binary.BigEndian, colorspace)

	var buf bytes.Buffer
	buf.Write(Box("jP  ", []byte{0x0D, 0x0A, 0x87, 0x0A}))
	buf.Write(Box("ftyp", []byte("jp2 \x00\x00\x00\x00jp2 ")))
	buf.Write(Box("jp2h", append(Box("ihdr", ihdr.Bytes()), Box("colr", colr.Bytes())...)))
	buf.Write(Box("jp2c", cs))
	return buf.Bytes()
}
