package netsync

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Decompression failures. Corrupt input always yields one of these;
// never a panic, never silently wrong bytes.
var (
	ErrChecksumMismatch = errors.New("netsync: payload checksum mismatch")
	ErrSizeMismatch     = errors.New("netsync: payload size mismatch")
	ErrInvalidPayload   = errors.New("netsync: malformed compressed payload")
)

// Wire marker for the first header byte.
const (
	payloadRaw        = 0x00
	payloadCompressed = 0x01
)

// compressHeaderLen is marker + original length + checksum.
const compressHeaderLen = 1 + 4 + 4

// CompressorConfig bounds when compression is attempted and when its
// result is kept.
type CompressorConfig struct {
	MinSize  int     // below this, compression is not attempted
	MaxSize  int     // above this, payloads ship raw (0 = no limit)
	MinRatio float64 // compressed/original must be at or below this
}

// DefaultCompressorConfig compresses mid-sized payloads that shrink by
// at least a tenth.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{MinSize: 128, MaxSize: 1 << 20, MinRatio: 0.9}
}

// PayloadCompressor frames payloads with a marker byte, the original
// length, and a checksum, optionally deflating the body. Decompression
// verifies both length and checksum before handing bytes to the caller.
type PayloadCompressor struct {
	cfg CompressorConfig
}

// NewPayloadCompressor builds a compressor with the given bounds.
func NewPayloadCompressor(cfg CompressorConfig) *PayloadCompressor {
	if cfg.MinRatio <= 0 {
		cfg.MinRatio = 0.9
	}
	return &PayloadCompressor{cfg: cfg}
}

// checksum is an additive/rotating fold over the payload. Cheap, order
// sensitive, and good enough to catch truncation and bit rot; this is
// corruption detection, not authentication.
func checksum(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum = (sum << 5) | (sum >> 27)
		sum += uint32(b)
	}
	return sum
}

// Compress frames the payload. The body is deflated only when the size
// window and the ratio both justify it; otherwise the original bytes
// ship behind a raw marker.
func (p *PayloadCompressor) Compress(data []byte) ([]byte, error) {
	header := make([]byte, compressHeaderLen)
	header[0] = payloadRaw
	binary.BigEndian.PutUint32(header[1:5], uint32(len(data)))
	binary.BigEndian.PutUint32(header[5:9], checksum(data))

	inWindow := len(data) >= p.cfg.MinSize &&
		(p.cfg.MaxSize == 0 || len(data) <= p.cfg.MaxSize)
	if !inWindow {
		return append(header, data...), nil
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("netsync: flate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("netsync: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("netsync: compress: %w", err)
	}

	if float64(buf.Len()) > float64(len(data))*p.cfg.MinRatio {
		return append(header, data...), nil
	}
	header[0] = payloadCompressed
	return append(header, buf.Bytes()...), nil
}

// Decompress unframes a payload, inflating if needed, and verifies the
// declared length and checksum.
func (p *PayloadCompressor) Decompress(framed []byte) ([]byte, error) {
	if len(framed) < compressHeaderLen {
		return nil, ErrInvalidPayload
	}
	marker := framed[0]
	declaredLen := binary.BigEndian.Uint32(framed[1:5])
	declaredSum := binary.BigEndian.Uint32(framed[5:9])
	body := framed[compressHeaderLen:]

	var data []byte
	switch marker {
	case payloadRaw:
		data = body
	case payloadCompressed:
		r := flate.NewReader(bytes.NewReader(body))
		inflated, err := io.ReadAll(io.LimitReader(r, int64(declaredLen)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if err := r.Close(); err != nil && len(inflated) != int(declaredLen) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		data = inflated
	default:
		return nil, ErrInvalidPayload
	}

	if uint32(len(data)) != declaredLen {
		return nil, ErrSizeMismatch
	}
	if checksum(data) != declaredSum {
		return nil, ErrChecksumMismatch
	}
	return data, nil
}
