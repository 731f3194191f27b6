package wire

import (
	"fmt"
)

// BytesDecoder handles length-delimited bytes decoding operations. A
// length-delimited payload is a varint byte count followed by exactly that
// many raw bytes; it is the universal framing for strings, byte blobs and
// embedded messages.
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-delimited bytes encoding operations
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new bytes decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new bytes encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// DECODER METHODS

// decodeLength reads a length prefix. The varint is reinterpreted as a
// signed count and rejected if negative.
func (bd *BytesDecoder) decodeLength() (int, error) {
	raw, err := bd.decoder.decodeVarint64()
	if err != nil {
		return 0, err
	}
	if n := int64(raw); n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	return int(raw), nil
}

// DecodeBytes decodes a length-delimited byte array into a fresh slice
func (bd *BytesDecoder) DecodeBytes() ([]byte, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	// Copy the data to avoid sharing the underlying buffer
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// DecodeString decodes a length-delimited string
func (bd *BytesDecoder) DecodeString() (string, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeRawBytes decodes bytes without copying (shares buffer)
func (bd *BytesDecoder) DecodeRawBytes() ([]byte, error) {
	length, err := bd.decodeLength()
	if err != nil {
		return nil, err
	}
	return bd.decoder.ReadN(length)
}

// SkipBytes skips over a length-delimited byte array
func (bd *BytesDecoder) SkipBytes() error {
	length, err := bd.decodeLength()
	if err != nil {
		return err
	}
	_, err = bd.decoder.ReadN(length)
	return err
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-delimited
func (be *BytesEncoder) EncodeBytes(data []byte) error {
	be.encoder.buf = AppendUvarint(be.encoder.buf, uint64(len(data)))
	be.encoder.buf = append(be.encoder.buf, data...)
	return nil
}

// EncodeString encodes a string as length-delimited bytes
func (be *BytesEncoder) EncodeString(s string) error {
	be.encoder.buf = AppendUvarint(be.encoder.buf, uint64(len(s)))
	be.encoder.buf = append(be.encoder.buf, s...)
	return nil
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}

// StringSize returns the size needed to encode the given string
func StringSize(s string) int {
	return VarintSize(uint64(len(s))) + len(s)
}

// Convenience methods for direct access (maintains backward compatibility)

// DecodeBytes - convenience method for main decoder
func (d *Decoder) DecodeBytes() ([]byte, error) {
	bd := NewBytesDecoder(d)
	return bd.DecodeBytes()
}

// EncodeBytes - convenience method for main encoder
func (e *Encoder) EncodeBytes(data []byte) error {
	be := NewBytesEncoder(e)
	return be.EncodeBytes(data)
}

// EncodeString - convenience method for main encoder
func (e *Encoder) EncodeString(s string) error {
	be := NewBytesEncoder(e)
	return be.EncodeString(s)
}
