package cache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a payload compression algorithm. It is stored as the first
// byte of every encoded payload.
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
	LZ4    Algorithm = 2
)

// String returns the configuration name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// Codec encodes payloads with one algorithm and decodes payloads of any algorithm
type Codec struct {
	algo Algorithm
}

// CodecFor returns the codec named by a cache.compression value. Empty selects snappy.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "snappy":
		return Codec{algo: Snappy}, nil
	case "lz4":
		return Codec{algo: LZ4}, nil
	case "none":
		return Codec{algo: None}, nil
	default:
		return Codec{}, fmt.Errorf("unsupported cache compression: %s", name)
	}
}

// Algorithm returns the algorithm used by Encode
func (c Codec) Algorithm() Algorithm {
	return c.algo
}

// Encode compresses data behind a one-byte algorithm header
func (c Codec) Encode(data []byte) ([]byte, error) {
	switch c.algo {
	case Snappy:
		return append([]byte{byte(Snappy)}, snappy.Encode(nil, data)...), nil
	case LZ4:
		var buf bytes.Buffer
		buf.WriteByte(byte(LZ4))
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress failed: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return append([]byte{byte(None)}, data...), nil
	}
}

// Decode reverses Encode for whichever algorithm produced payload
func (c Codec) Decode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty cache payload")
	}

	body := payload[1:]
	switch Algorithm(payload[0]) {
	case None:
		return body, nil
	case Snappy:
		data, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("snappy decompress failed: %w", err)
		}
		return data, nil
	case LZ4:
		data, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress failed: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown cache payload algorithm: %d", payload[0])
	}
}
