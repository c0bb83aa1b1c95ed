package ndi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Bridge stream framing: a 24-byte big-endian header
//
//	magic "NDIF" | fourcc | width | height | stride | length
//
// followed by length bytes of pixel data. A zero-length frame means the
// bridge polled but had nothing new.
const (
	frameMagic    = "NDIF"
	headerSize    = 24
	MaxFrameBytes = 64 << 20
)

// ErrBadMagic is returned when the bridge stream is out of sync.
var ErrBadMagic = errors.New("bad frame magic")

// WriteFrame encodes one frame onto w.
func WriteFrame(w io.Writer, f VideoFrame) error {
	var header [headerSize]byte
	copy(header[0:4], frameMagic)
	binary.BigEndian.PutUint32(header[4:8], uint32(f.FourCC))
	binary.BigEndian.PutUint32(header[8:12], uint32(f.Width))
	binary.BigEndian.PutUint32(header[12:16], uint32(f.Height))
	binary.BigEndian.PutUint32(header[16:20], uint32(f.Stride))
	binary.BigEndian.PutUint32(header[20:24], uint32(len(f.Data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(f.Data) == 0 {
		return nil
	}
	if _, err := w.Write(f.Data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// ReadFrame decodes one frame from r. It returns io.EOF only when the
// stream ends cleanly between frames.
func ReadFrame(r io.Reader) (VideoFrame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return VideoFrame{}, fmt.Errorf("read header: %w", err)
		}
		return VideoFrame{}, err
	}
	if string(header[0:4]) != frameMagic {
		return VideoFrame{}, ErrBadMagic
	}

	f := VideoFrame{
		FourCC: FourCC(binary.BigEndian.Uint32(header[4:8])),
		Width:  int(binary.BigEndian.Uint32(header[8:12])),
		Height: int(binary.BigEndian.Uint32(header[12:16])),
		Stride: int(binary.BigEndian.Uint32(header[16:20])),
	}

	length := binary.BigEndian.Uint32(header[20:24])
	if length > MaxFrameBytes {
		return VideoFrame{}, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	if length == 0 {
		return f, nil
	}

	f.Data = make([]byte, length)
	if _, err := io.ReadFull(r, f.Data); err != nil {
		return VideoFrame{}, fmt.Errorf("read data: %w", err)
	}
	return f, nil
}
