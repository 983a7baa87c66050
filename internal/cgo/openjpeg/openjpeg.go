//go:build openjpeg && cgo

// Package openjpeg is the libopenjp2 backend of jp2.Codec. The stream reads
// the file through Go callbacks and codec messages go to the session
// diagnostics.
package openjpeg

/*
#cgo pkg-config: libopenjp2
#include <stdlib.h>
#include <openjpeg.h>

extern OPJ_SIZE_T goStreamRead(void *buf, OPJ_SIZE_T n, void *user);
extern OPJ_OFF_T goStreamSkip(OPJ_OFF_T n, void *user);
extern OPJ_BOOL goStreamSeek(OPJ_OFF_T n, void *user);
extern void goDiagnostic(int level, char *msg, void *user);

static opj_stream_t *jp2_stream_create(void *user, OPJ_UINT64 length) {
	opj_stream_t *stream = opj_stream_create(OPJ_J2K_STREAM_CHUNK_SIZE, OPJ_TRUE);
	if (!stream) {
		return NULL;
	}
	opj_stream_set_user_data(stream, user, NULL);
	opj_stream_set_user_data_length(stream, length);
	opj_stream_set_read_function(stream, goStreamRead);
	opj_stream_set_skip_function(stream, goStreamSkip);
	opj_stream_set_seek_function(stream, goStreamSeek);
	return stream;
}

static void jp2_info(const char *msg, void *user) { goDiagnostic(0, (char *)msg, user); }
static void jp2_warning(const char *msg, void *user) { goDiagnostic(1, (char *)msg, user); }
static void jp2_error(const char *msg, void *user) { goDiagnostic(2, (char *)msg, user); }

static void jp2_set_handlers(opj_codec_t *codec, void *user) {
	opj_set_info_handler(codec, jp2_info, user);
	opj_set_warning_handler(codec, jp2_warning, user);
	opj_set_error_handler(codec, jp2_error, user);
}

static OPJ_UINT32 jp2_numresolutions(opj_codestream_info_v2_t *info) {
	if (!info || !info->m_default_tile_info.tccp_info) {
		return 0;
	}
	return info->m_default_tile_info.tccp_info[0].numresolutions;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"runtime/cgo"
	"unsafe"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// Codec decodes JP2 files with libopenjp2
type Codec struct{}

// New returns the libopenjp2 codec
func New() *Codec {
	return &Codec{}
}

// Name implements jp2.Codec
func (*Codec) Name() string {
	return config.CodecOpenJPEG
}

// pinnedHandle is a cgo.Handle stored in C memory so its address can be
// handed to the library as user data
type pinnedHandle struct {
	handle cgo.Handle
	ptr    unsafe.Pointer
}

func pin(v any) (*pinnedHandle, error) {
	ptr := C.malloc(C.size_t(unsafe.Sizeof(cgo.Handle(0))))
	if ptr == nil {
		return nil, errors.New("openjpeg: allocate handle")
	}
	h := cgo.NewHandle(v)
	*(*cgo.Handle)(ptr) = h
	return &pinnedHandle{handle: h, ptr: ptr}, nil
}

func (p *pinnedHandle) release() {
	p.handle.Delete()
	C.free(p.ptr)
}

// handleValue resolves user data passed back by the library
func handleValue(user unsafe.Pointer) any {
	if user == nil {
		return nil
	}
	return (*(*cgo.Handle)(user)).Value()
}

type stream struct {
	s    *C.opj_stream_t
	user *pinnedHandle
}

// NewStream implements jp2.Codec
func (*Codec) NewStream(f *os.File) (jp2.Stream, error) {
	if f == nil {
		return nil, errors.New("openjpeg: nil file")
	}
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	user, err := pin(f)
	if err != nil {
		return nil, err
	}
	s := C.jp2_stream_create(user.ptr, C.OPJ_UINT64(st.Size()))
	if s == nil {
		user.release()
		return nil, errors.New("openjpeg: opj_stream_create failed")
	}
	return &stream{s: s, user: user}, nil
}

func (s *stream) Close() error {
	if s.s == nil {
		return nil
	}
	C.opj_stream_destroy(s.s)
	s.s = nil
	s.user.release()
	return nil
}

type decoder struct {
	codec *C.opj_codec_t
	diag  *pinnedHandle
}

// NewDecoder implements jp2.Codec
func (*Codec) NewDecoder(diag jp2.Diagnostics) (jp2.Decoder, error) {
	codec := C.opj_create_decompress(C.OPJ_CODEC_JP2)
	if codec == nil {
		return nil, errors.New("openjpeg: opj_create_decompress failed")
	}
	h, err := pin(diag)
	if err != nil {
		C.opj_destroy_codec(codec)
		return nil, err
	}
	C.jp2_set_handlers(codec, h.ptr)
	return &decoder{codec: codec, diag: h}, nil
}

func (d *decoder) Setup(params jp2.DecodeParams) error {
	var p C.opj_dparameters_t
	C.opj_set_default_decoder_parameters(&p)
	p.cp_reduce = C.OPJ_UINT32(params.Reduce)
	p.cp_layer = C.OPJ_UINT32(params.Layers)
	if C.opj_setup_decoder(d.codec, &p) == C.OPJ_FALSE {
		return errors.New("openjpeg: opj_setup_decoder failed")
	}
	if params.Threads > 1 && C.opj_codec_set_threads(d.codec, C.int(params.Threads)) == C.OPJ_FALSE {
		d.diagnostics().Warning(fmt.Sprintf("could not configure %d threads", params.Threads))
	}
	return nil
}

func (d *decoder) diagnostics() jp2.Diagnostics {
	if diag, ok := d.diag.handle.Value().(jp2.Diagnostics); ok && diag != nil {
		return diag
	}
	return jp2.NopDiagnostics{}
}

func (d *decoder) ReadHeader(s jp2.Stream) (jp2.Image, error) {
	st, ok := s.(*stream)
	if !ok {
		return nil, fmt.Errorf("openjpeg: foreign stream %T", s)
	}
	var img *C.opj_image_t
	ok = C.opj_read_header(st.s, d.codec, &img) != C.OPJ_FALSE
	var out jp2.Image
	if img != nil {
		out = &image{img: img}
	}
	if !ok {
		return out, errors.New("openjpeg: opj_read_header failed")
	}
	return out, nil
}

func (d *decoder) DecodeTile(s jp2.Stream, img jp2.Image, tileIndex int) error {
	st, ok := s.(*stream)
	if !ok {
		return fmt.Errorf("openjpeg: foreign stream %T", s)
	}
	im, ok := img.(*image)
	if !ok {
		return fmt.Errorf("openjpeg: foreign image %T", img)
	}
	if C.opj_get_decoded_tile(d.codec, st.s, im.img, C.OPJ_UINT32(tileIndex)) == C.OPJ_FALSE {
		return errors.New("openjpeg: opj_get_decoded_tile failed")
	}
	return nil
}

func (d *decoder) CodestreamInfo() (jp2.InfoHandle, error) {
	info := C.opj_get_cstr_info(d.codec)
	if info == nil {
		return nil, errors.New("openjpeg: opj_get_cstr_info failed")
	}
	return &infoHandle{info: info}, nil
}

func (d *decoder) Close() error {
	if d.codec == nil {
		return nil
	}
	C.opj_destroy_codec(d.codec)
	d.codec = nil
	d.diag.release()
	return nil
}

type image struct {
	img *C.opj_image_t
}

func (im *image) components() []C.opj_image_comp_t {
	if im.img == nil || im.img.numcomps == 0 || im.img.comps == nil {
		return nil
	}
	return unsafe.Slice(im.img.comps, int(im.img.numcomps))
}

func (im *image) Header() jp2.ImageHeader {
	if im.img == nil {
		return jp2.ImageHeader{}
	}
	comps := im.components()
	hdr := jp2.ImageHeader{
		X0:         int(im.img.x0),
		Y0:         int(im.img.y0),
		X1:         int(im.img.x1),
		Y1:         int(im.img.y1),
		Components: make([]jp2.ComponentInfo, len(comps)),
	}
	for i, c := range comps {
		hdr.Components[i] = jp2.ComponentInfo{
			Width:     int(c.w),
			Height:    int(c.h),
			Precision: int(c.prec),
			Signed:    c.sgnd != 0,
		}
	}
	return hdr
}

func (im *image) Samples(comp int) []int32 {
	comps := im.components()
	if comp < 0 || comp >= len(comps) || comps[comp].data == nil {
		return nil
	}
	c := comps[comp]
	return unsafe.Slice((*int32)(unsafe.Pointer(c.data)), int(c.w)*int(c.h))
}

func (im *image) Close() error {
	if im.img != nil {
		C.opj_image_destroy(im.img)
		im.img = nil
	}
	return nil
}

type infoHandle struct {
	info *C.opj_codestream_info_v2_t
}

func (h *infoHandle) Grid() jp2.TileGrid {
	if h.info == nil {
		return jp2.TileGrid{}
	}
	return jp2.TileGrid{
		TilesX:      int(h.info.tw),
		TilesY:      int(h.info.th),
		TileW:       int(h.info.tdx),
		TileH:       int(h.info.tdy),
		Resolutions: int(C.jp2_numresolutions(h.info)),
	}
}

func (h *infoHandle) Close() error {
	if h.info != nil {
		C.opj_destroy_cstr_info(&h.info)
		h.info = nil
	}
	return nil
}
