package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jonas747/ogg"
)

// Packets yields Opus packets ready for the voice connection.
type Packets interface {
	Next() ([]byte, error)
	Close() error
}

// Encoder turns 16-bit PCM into Opus packets.
type Encoder interface {
	Encode(ctx context.Context, pcm io.Reader, h WavHeader) (Packets, error)
}

// EncodeOptions configure the ffmpeg encoder.
type EncodeOptions struct {
	Path             string
	Bitrate          int // kbit/s
	CompressionLevel int
}

// FFmpeg encodes with an ffmpeg subprocess writing Ogg/Opus to stdout.
type FFmpeg struct {
	opts EncodeOptions
}

func NewFFmpeg(opts EncodeOptions) *FFmpeg {
	if opts.Path == "" {
		opts.Path = "ffmpeg"
	}
	return &FFmpeg{opts: opts}
}

func (f *FFmpeg) args(h WavHeader) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(int(h.SampleRate)),
		"-ac", strconv.Itoa(int(h.NumChannels)),
		"-i", "pipe:0",
		"-map", "0:a",
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%dk", f.opts.Bitrate),
		"-compression_level", strconv.Itoa(f.opts.CompressionLevel),
		"-application", "audio",
		"-frame_duration", "20",
		"-vbr", "on",
		"-ar", "48000",
		"-ac", "2",
		"-f", "ogg",
		"pipe:1",
	}
}

func (f *FFmpeg) Encode(ctx context.Context, pcm io.Reader, h WavHeader) (Packets, error) {
	if h.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported sample size: %d bits", h.BitsPerSample)
	}

	cmd := exec.CommandContext(ctx, f.opts.Path, f.args(h)...)
	cmd.Stdin = pcm
	cmd.WaitDelay = 2 * time.Second
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	return &oggPackets{
		cmd:    cmd,
		stderr: stderr,
		dec:    ogg.NewPacketDecoder(ogg.NewDecoder(stdout)),
		// OpusHead and OpusTags
		skip: 2,
	}, nil
}

type oggPackets struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	dec    *ogg.PacketDecoder
	skip   int
	closed bool
}

func (o *oggPackets) Next() ([]byte, error) {
	for {
		packet, _, err := o.dec.Decode()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("decoding ogg: %w", err)
		}
		if o.skip > 0 {
			o.skip--
			continue
		}
		// the decoder reuses its page buffer
		return append([]byte(nil), packet...), nil
	}
}

func (o *oggPackets) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if o.cmd.ProcessState == nil {
		_ = o.cmd.Process.Kill()
	}
	err := o.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		// killed by us
		return nil
	}
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(o.stderr.String()))
	}
	return nil
}
