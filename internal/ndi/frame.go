package ndi

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Frame conversion errors.
var (
	ErrEmptyFrame        = errors.New("frame has no pixels")
	ErrShortFrame        = errors.New("frame data shorter than its geometry")
	ErrUnsupportedFormat = errors.New("unsupported pixel layout")
)

// FourCC identifies an NDI pixel layout. Values match the NDI SDK,
// which packs the four characters little-endian.
type FourCC uint32

// Pixel layouts an NDI receiver can deliver.
const (
	FourCCUYVY = FourCC('U') | FourCC('Y')<<8 | FourCC('V')<<16 | FourCC('Y')<<24
	FourCCBGRA = FourCC('B') | FourCC('G')<<8 | FourCC('R')<<16 | FourCC('A')<<24
	FourCCBGRX = FourCC('B') | FourCC('G')<<8 | FourCC('R')<<16 | FourCC('X')<<24
	FourCCRGBA = FourCC('R') | FourCC('G')<<8 | FourCC('B')<<16 | FourCC('A')<<24
	FourCCRGBX = FourCC('R') | FourCC('G')<<8 | FourCC('B')<<16 | FourCC('X')<<24
)

// ParseFourCC packs a four character code.
func ParseFourCC(s string) (FourCC, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("fourcc %q: want 4 characters", s)
	}
	return FourCC(s[0]) | FourCC(s[1])<<8 | FourCC(s[2])<<16 | FourCC(s[3])<<24, nil
}

func (f FourCC) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// VideoFrame is one frame as delivered by the receiver.
type VideoFrame struct {
	Width  int
	Height int
	// Stride is the number of bytes per row; zero means tightly packed.
	Stride int
	FourCC FourCC
	Data   []byte
}

// ToBGR converts the frame into a 3-channel BGR Mat owned by the caller.
// Layouts without a known conversion are handled best-effort: a 3-byte
// pixel is taken as BGR and a 4-byte pixel is truncated to its first three
// channels.
func (f VideoFrame) ToBGR() (gocv.Mat, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) == 0 {
		return gocv.NewMat(), ErrEmptyFrame
	}

	switch f.FourCC {
	case FourCCBGRA, FourCCBGRX:
		return f.convert(4, gocv.MatTypeCV8UC4, gocv.ColorBGRAToBGR)
	case FourCCRGBA, FourCCRGBX:
		return f.convert(4, gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGR)
	case FourCCUYVY:
		return f.convert(2, gocv.MatTypeCV8UC2, gocv.ColorYUVToBGRUYVY)
	default:
		return f.bestEffort()
	}
}

func (f VideoFrame) convert(bpp int, mt gocv.MatType, code gocv.ColorConversionCode) (gocv.Mat, error) {
	pixels, err := f.packed(bpp)
	if err != nil {
		return gocv.NewMat(), err
	}

	src, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, pixels)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap %s frame: %w", f.FourCC, err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, code)
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("convert %s frame: empty result", f.FourCC)
	}
	return dst, nil
}

func (f VideoFrame) bestEffort() (gocv.Mat, error) {
	rowBytes := f.Stride
	if rowBytes == 0 {
		rowBytes = len(f.Data) / f.Height
	}

	switch rowBytes / f.Width {
	case 3:
		pixels, err := f.packed(3)
		if err != nil {
			return gocv.NewMat(), err
		}
		src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, pixels)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("wrap %s frame: %w", f.FourCC, err)
		}
		defer src.Close()
		return src.Clone(), nil
	case 4:
		return f.convert(4, gocv.MatTypeCV8UC4, gocv.ColorBGRAToBGR)
	default:
		return gocv.NewMat(), fmt.Errorf("%w: %s with %d bytes per row", ErrUnsupportedFormat, f.FourCC, rowBytes)
	}
}

// packed returns the pixel rows without stride padding.
func (f VideoFrame) packed(bpp int) ([]byte, error) {
	rowBytes := f.Width * bpp
	stride := f.Stride
	if stride == 0 {
		stride = rowBytes
	}
	if stride < rowBytes {
		return nil, fmt.Errorf("%w: stride %d < row %d", ErrShortFrame, stride, rowBytes)
	}

	need := stride*(f.Height-1) + rowBytes
	if len(f.Data) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortFrame, len(f.Data), need)
	}

	if stride == rowBytes {
		return f.Data[:rowBytes*f.Height], nil
	}

	out := make([]byte, rowBytes*f.Height)
	for y := 0; y < f.Height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], f.Data[y*stride:y*stride+rowBytes])
	}
	return out, nil
}
