// Package blob implements the compact, self-describing binary encoding used
// for per-sample genotype arrays (genotype calls, depths, qualities).
//
// A blob is a one-byte element-type tag followed by a compressed payload:
//
//	'i'  int32 elements, little-endian
//	'f'  float32 elements, little-endian
//	'S'  string elements, joined with a reserved NUL separator
//	'?'  bool elements, one byte each
//
// Two compression schemes exist: the compact scheme (snappy) and the legacy
// scheme (zlib). Both share the tag framing, so a reader only needs to know
// which scheme a database was written with; the ingestion run records that
// choice in the features table. The scheme is fixed for an entire run.
//
// A nil array encodes to one canonical empty blob, precomputed once; decoding
// an empty blob yields nil. Round-trips are exact for every supported input.
package blob

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/golang/snappy"
)

// Kind tags the element type of an Array. The values double as the on-disk
// type tag byte.
type Kind byte

const (
	KindInt    Kind = 'i'
	KindFloat  Kind = 'f'
	KindString Kind = 'S'
	KindBool   Kind = '?'
)

// sep joins string elements before compression. It may not appear inside an
// element.
const sep = "\x00"

// Array is a homogeneous per-sample array. Exactly one of the element slices
// is populated, selected by Kind. A nil *Array represents the absent value.
type Array struct {
	Kind    Kind
	Ints    []int32
	Floats  []float32
	Strings []string
	Bools   []bool
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	switch a.Kind {
	case KindInt:
		return len(a.Ints)
	case KindFloat:
		return len(a.Floats)
	case KindString:
		return len(a.Strings)
	case KindBool:
		return len(a.Bools)
	}
	return 0
}

// Ints32 wraps a []int32 as an Array.
func Ints32(v []int32) *Array { return &Array{Kind: KindInt, Ints: v} }

// Floats32 wraps a []float32 as an Array.
func Floats32(v []float32) *Array { return &Array{Kind: KindFloat, Floats: v} }

// Strs wraps a []string as an Array.
func Strs(v []string) *Array { return &Array{Kind: KindString, Strings: v} }

// Bools wraps a []bool as an Array.
func Bools(v []bool) *Array { return &Array{Kind: KindBool, Bools: v} }

// Codec encodes and decodes genotype arrays. Implementations are safe for
// concurrent use.
type Codec interface {
	// Scheme names the codec as recorded in the features table.
	Scheme() string
	Encode(a *Array) ([]byte, error)
	Decode(b []byte) (*Array, error)
}

// nullBlob is the canonical encoding of a nil array, shared by both schemes.
var nullBlob = []byte{}

// rawBytes flattens the array elements into their uncompressed payload form.
func rawBytes(a *Array) ([]byte, error) {
	switch a.Kind {
	case KindInt:
		out := make([]byte, 4*len(a.Ints))
		for i, v := range a.Ints {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
		}
		return out, nil
	case KindFloat:
		out := make([]byte, 4*len(a.Floats))
		for i, v := range a.Floats {
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
		}
		return out, nil
	case KindString:
		for _, s := range a.Strings {
			// Empty elements would be ambiguous with the empty array on decode.
			if s == "" {
				return nil, fmt.Errorf("blob: empty string element")
			}
			if strings.Contains(s, sep) {
				return nil, fmt.Errorf("blob: string element contains reserved separator byte")
			}
		}
		return []byte(strings.Join(a.Strings, sep)), nil
	case KindBool:
		out := make([]byte, len(a.Bools))
		for i, v := range a.Bools {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("blob: unsupported element kind %q", byte(a.Kind))
}

// fromRaw is the inverse of rawBytes.
func fromRaw(tag Kind, raw []byte) (*Array, error) {
	switch tag {
	case KindInt:
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("blob: int payload length %d not a multiple of 4", len(raw))
		}
		out := make([]int32, len(raw)/4)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		return Ints32(out), nil
	case KindFloat:
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("blob: float payload length %d not a multiple of 4", len(raw))
		}
		out := make([]float32, len(raw)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		return Floats32(out), nil
	case KindString:
		if len(raw) == 0 {
			return Strs([]string{}), nil
		}
		return Strs(strings.Split(string(raw), sep)), nil
	case KindBool:
		out := make([]bool, len(raw))
		for i, b := range raw {
			out[i] = b != 0
		}
		return Bools(out), nil
	}
	// Corruption fault: fatal for this blob, not for the run.
	return nil, fmt.Errorf("blob: unrecognized type tag %#x", byte(tag))
}

// Snappy is the compact codec. It is the default for new databases.
type Snappy struct{}

func (Snappy) Scheme() string { return "snappy_compression" }

func (Snappy) Encode(a *Array) ([]byte, error) {
	if a == nil {
		return nullBlob, nil
	}
	raw, err := rawBytes(a)
	if err != nil {
		return nil, err
	}
	enc := snappy.Encode(nil, raw)
	out := make([]byte, 1+len(enc))
	out[0] = byte(a.Kind)
	copy(out[1:], enc)
	return out, nil
}

func (Snappy) Decode(b []byte) (*Array, error) {
	if len(b) == 0 {
		return nil, nil
	}
	raw, err := snappy.Decode(nil, b[1:])
	if err != nil {
		return nil, fmt.Errorf("blob: snappy decompress: %w", err)
	}
	return fromRaw(Kind(b[0]), raw)
}

// Zlib is the legacy codec, kept so existing readers keep working. Framing is
// identical to Snappy; only the compression primitive differs.
type Zlib struct{}

func (Zlib) Scheme() string { return "zlib_compression" }

func (Zlib) Encode(a *Array) ([]byte, error) {
	if a == nil {
		return nullBlob, nil
	}
	raw, err := rawBytes(a)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(a.Kind))
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Zlib) Decode(b []byte) (*Array, error) {
	if len(b) == 0 {
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(b[1:]))
	if err != nil {
		return nil, fmt.Errorf("blob: zlib decompress: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("blob: zlib decompress: %w", err)
	}
	_ = zr.Close()
	return fromRaw(Kind(b[0]), raw)
}

// ForScheme returns the codec registered under the given features-table name.
func ForScheme(scheme string) (Codec, error) {
	switch scheme {
	case "snappy_compression":
		return Snappy{}, nil
	case "zlib_compression":
		return Zlib{}, nil
	}
	return nil, fmt.Errorf("blob: unknown compression scheme %q", scheme)
}
