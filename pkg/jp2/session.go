package jp2

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DecodedImage holds the component samples of one decoded tile
type DecodedImage struct {
	Width, Height int // component 0
	Components    int
	Data          [][]int32 // one buffer per component, samples as produced by the codec
	// Info describes each component of Data, including its precision
	Info []ComponentInfo
}

// Free drops the sample buffers
func (img *DecodedImage) Free() {
	if img == nil {
		return
	}
	for i := range img.Data {
		img.Data[i] = nil
	}
}

// CodestreamInfo is the header-level geometry of a JP2 file
type CodestreamInfo struct {
	X1, Y1         int
	TilesX, TilesY int
	TileW, TileH   int
	Resolutions    int
	Components     int
}

// Session owns the file, stream, decoder and image handles of a single
// decode. It is not safe for concurrent use.
type Session struct {
	path    string
	status  Status
	stream  Stream
	decoder Decoder
	image   Image

	// release stack, in acquisition order
	acquired []io.Closer
	closed   bool
}

// OpenSession opens path and runs the setup sequence: stream, decoder,
// header. On failure every resource acquired so far is released in reverse
// order and a *SessionError carrying the failed stage is returned.
func OpenSession(codec Codec, path string, params DecodeParams, diag Diagnostics) (*Session, error) {
	if diag == nil {
		diag = NopDiagnostics{}
	}
	s := &Session{path: path}

	f, err := os.Open(path)
	if err != nil {
		return nil, s.fail(StatusStreamCreateFailed, err)
	}
	s.push(f)

	stream, err := codec.NewStream(f)
	if err != nil || stream == nil {
		return nil, s.fail(StatusStreamCreateFailed, err)
	}
	s.stream = stream
	s.push(stream)

	decoder, err := codec.NewDecoder(diag)
	if err != nil || decoder == nil {
		return nil, s.fail(StatusDecoderSetupFailed, err)
	}
	s.decoder = decoder
	s.push(decoder)
	if err := decoder.Setup(params); err != nil {
		return nil, s.fail(StatusDecoderSetupFailed, err)
	}

	img, err := decoder.ReadHeader(stream)
	if img != nil {
		s.image = img
		s.push(img)
	}
	if err != nil || img == nil {
		return nil, s.fail(StatusHeaderReadFailed, err)
	}

	s.status = StatusOK
	return s, nil
}

func (s *Session) push(c io.Closer) {
	s.acquired = append(s.acquired, c)
}

func (s *Session) fail(status Status, cause error) error {
	s.status = status
	if err := s.release(); err != nil {
		cause = errors.Join(cause, err)
	}
	return &SessionError{Status: status, Path: s.path, Err: cause}
}

// release closes every acquired handle, most recent first, exactly once
func (s *Session) release() error {
	var errs []error
	for i := len(s.acquired) - 1; i >= 0; i-- {
		if err := s.acquired[i].Close(); err != nil {
			errs = append(errs, err)
		}
		s.acquired[i] = nil
	}
	s.acquired = nil
	s.stream, s.decoder, s.image = nil, nil, nil
	return errors.Join(errs...)
}

// Status returns the setup status of the session
func (s *Session) Status() Status {
	return s.status
}

func (s *Session) ready() error {
	if s == nil || s.closed || s.status != StatusOK {
		return ErrSessionNotOpen
	}
	return nil
}

// DecodeTile decodes the tile at the zero-based tileIndex and copies every
// component buffer out of the codec. No partial image is returned on error.
func (s *Session) DecodeTile(tileIndex int) (*DecodedImage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if tileIndex < 0 {
		return nil, &TileError{TileIndex: tileIndex, Err: fmt.Errorf("negative tile index")}
	}
	if err := s.decoder.DecodeTile(s.stream, s.image, tileIndex); err != nil {
		return nil, &TileError{TileIndex: tileIndex, Err: err}
	}

	hdr := s.image.Header()
	if len(hdr.Components) == 0 {
		return nil, &TileError{TileIndex: tileIndex, Err: fmt.Errorf("image has no components")}
	}
	out := &DecodedImage{
		Width:      hdr.Components[0].Width,
		Height:     hdr.Components[0].Height,
		Components: len(hdr.Components),
		Data:       make([][]int32, len(hdr.Components)),
		Info:       append([]ComponentInfo(nil), hdr.Components...),
	}
	for i, comp := range hdr.Components {
		n := comp.Width * comp.Height
		samples := s.image.Samples(i)
		if len(samples) < n {
			return nil, &TileError{
				TileIndex: tileIndex,
				Err:       fmt.Errorf("component %d has %d samples, want %d", i, len(samples), n),
			}
		}
		out.Data[i] = make([]int32, n)
		copy(out.Data[i], samples[:n])
	}
	return out, nil
}

// ReadSpecs returns the header geometry without decoding any tile. The codec
// info structure is released before returning.
func (s *Session) ReadSpecs() (*CodestreamInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	info, err := s.decoder.CodestreamInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: codestream info: %w", ErrHeaderRead, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: codestream info unavailable", ErrHeaderRead)
	}
	grid := info.Grid()
	if err := info.Close(); err != nil {
		return nil, fmt.Errorf("release codestream info: %w", err)
	}

	hdr := s.image.Header()
	return &CodestreamInfo{
		X1:          hdr.X1,
		Y1:          hdr.Y1,
		TilesX:      grid.TilesX,
		TilesY:      grid.TilesY,
		TileW:       grid.TileW,
		TileH:       grid.TileH,
		Resolutions: grid.Resolutions,
		Components:  len(hdr.Components),
	}, nil
}

// Close releases the image, decoder, stream and file. Calling it again is a
// no-op.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}
