package meshcodec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelgate.dev/internal/sim/world/mesh"
)

// Encodings. Raw buffers are little-endian: vertices as interleaved float32
// (position 3, colour 4, normal 3), indices as uint32. The ZSTD variant
// compresses each buffer independently before base64.
const (
	EncodingRaw  = "F32LE_P3C4N3+U32LE"
	EncodingZstd = "ZSTD+F32LE_P3C4N3+U32LE"
)

type Payload struct {
	Encoding    string `json:"encoding"`
	VertexCount int    `json:"vertex_count"`
	IndexCount  int    `json:"index_count"`
	Vertices    string `json:"vertices"`
	Indices     string `json:"indices"`
}

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	encOnce.Do(func() {
		enc, initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if initErr != nil {
			return
		}
		dec, initErr = zstd.NewReader(nil)
	})
	return enc, dec, initErr
}

func Encode(m *mesh.Mesh, compress bool) (Payload, error) {
	vb := make([]byte, 0, len(m.Vertices)*mesh.FloatsPerVertex*4)
	for _, f := range m.Interleaved() {
		vb = binary.LittleEndian.AppendUint32(vb, math.Float32bits(f))
	}
	ib := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		ib = binary.LittleEndian.AppendUint32(ib, i)
	}

	p := Payload{
		Encoding:    EncodingRaw,
		VertexCount: len(m.Vertices),
		IndexCount:  len(m.Indices),
	}
	if compress {
		e, _, err := codecs()
		if err != nil {
			return Payload{}, fmt.Errorf("meshcodec: %w", err)
		}
		vb = compressBuf(e, vb)
		ib = compressBuf(e, ib)
		p.Encoding = EncodingZstd
	}
	p.Vertices = base64.StdEncoding.EncodeToString(vb)
	p.Indices = base64.StdEncoding.EncodeToString(ib)
	return p, nil
}

// Decode returns the interleaved vertex floats and the index buffer.
func Decode(p Payload) ([]float32, []uint32, error) {
	vb, err := base64.StdEncoding.DecodeString(p.Vertices)
	if err != nil {
		return nil, nil, fmt.Errorf("meshcodec: vertices: %w", err)
	}
	ib, err := base64.StdEncoding.DecodeString(p.Indices)
	if err != nil {
		return nil, nil, fmt.Errorf("meshcodec: indices: %w", err)
	}
	switch p.Encoding {
	case EncodingRaw:
	case EncodingZstd:
		_, d, err := codecs()
		if err != nil {
			return nil, nil, fmt.Errorf("meshcodec: %w", err)
		}
		if vb, err = decompressBuf(d, vb); err != nil {
			return nil, nil, fmt.Errorf("meshcodec: vertices: %w", err)
		}
		if ib, err = decompressBuf(d, ib); err != nil {
			return nil, nil, fmt.Errorf("meshcodec: indices: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("meshcodec: unknown encoding %q", p.Encoding)
	}

	if len(vb) != p.VertexCount*mesh.FloatsPerVertex*4 {
		return nil, nil, fmt.Errorf("meshcodec: vertex buffer is %d bytes, want %d", len(vb), p.VertexCount*mesh.FloatsPerVertex*4)
	}
	if len(ib) != p.IndexCount*4 {
		return nil, nil, fmt.Errorf("meshcodec: index buffer is %d bytes, want %d", len(ib), p.IndexCount*4)
	}
	floats := make([]float32, len(vb)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(vb[i*4:]))
	}
	indices := make([]uint32, len(ib)/4)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(ib[i*4:])
	}
	return floats, indices, nil
}

// Empty buffers stay empty on the wire.
func compressBuf(e *zstd.Encoder, b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	return e.EncodeAll(b, nil)
}

func decompressBuf(d *zstd.Decoder, b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	return d.DecodeAll(b, nil)
}
