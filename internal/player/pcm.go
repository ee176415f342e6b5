package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// ErrNotWAV is returned when a stream does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a WAV stream")

// PCMVolume scales signed 16-bit little-endian PCM read from r.
// The factor can change while reading; it applies from the next Read.
type PCMVolume struct {
	r io.Reader

	mu     sync.Mutex
	factor float64

	// odd trailing byte from the previous Read
	carry    byte
	hasCarry bool
}

func NewPCMVolume(r io.Reader) *PCMVolume {
	return &PCMVolume{r: r, factor: 1}
}

// SetVolume sets the linear gain. 1 is unity; negative values are treated as 0.
func (v *PCMVolume) SetVolume(factor float64) {
	v.mu.Lock()
	v.factor = math.Max(0, factor)
	v.mu.Unlock()
}

func (v *PCMVolume) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.factor
}

// Read only ever returns whole samples unless the source ends on an odd byte.
func (v *PCMVolume) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	if v.hasCarry {
		p[0] = v.carry
		v.hasCarry = false
		n = 1
	}

	m, err := v.r.Read(p[n:])
	n += m

	if n%2 != 0 {
		if err == nil {
			v.carry, v.hasCarry = p[n-1], true
			n--
		} else {
			// source is done; hand the dangling byte over unscaled
			scale(p[:n-1], v.Volume())
			return n, err
		}
	}

	scale(p[:n], v.Volume())
	return n, err
}

func scale(buf []byte, factor float64) {
	if math.Abs(factor-1) < 0.001 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(buf[i:]))) * factor
		s = math.Max(math.MinInt16, math.Min(math.MaxInt16, s))
		binary.LittleEndian.PutUint16(buf[i:], uint16(int16(s)))
	}
}

// WavHeader holds the fields of the fmt chunk the encoder needs.
type WavHeader struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ReadWavHeader consumes chunks up to and including the data chunk header,
// leaving r positioned at the first sample.
func ReadWavHeader(r io.Reader) (*WavHeader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var h *WavHeader
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			h = &WavHeader{
				AudioFormat:   binary.LittleEndian.Uint16(data[0:2]),
				NumChannels:   binary.LittleEndian.Uint16(data[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(data[4:8]),
				ByteRate:      binary.LittleEndian.Uint32(data[8:12]),
				BlockAlign:    binary.LittleEndian.Uint16(data[12:14]),
				BitsPerSample: binary.LittleEndian.Uint16(data[14:16]),
			}
		case "data":
			// size is meaningless for streamed transcodes, often 0xFFFFFFFF
			if h == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			if h.AudioFormat != wavFormatPCM && h.AudioFormat != wavFormatExtensible {
				return nil, fmt.Errorf("unsupported WAV format: %d", h.AudioFormat)
			}
			return h, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
		}

		// chunks are word aligned
		if size%2 != 0 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return nil, fmt.Errorf("skipping pad byte: %w", err)
			}
		}
	}
}
