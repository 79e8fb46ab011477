package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// Transcoder converts arbitrary audio (MP3 from the TTS fetch) into the
// exact sample rate, channel layout and encoding the voice transport
// requires, through an ffmpeg subprocess.
type Transcoder struct {
	FFmpegPath string
}

func NewTranscoderFromEnv() *Transcoder {
	return &Transcoder{
		FFmpegPath: strings.TrimSpace(env.GetEnv("FFMPEG_PATH", "ffmpeg")),
	}
}

// Available reports whether the ffmpeg executable can be found.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.FFmpegPath)
	return err == nil
}

// ToPCM runs ffmpeg stdin-to-stdout and returns interleaved 48kHz stereo
// s16le samples. The subprocess inherits ctx, so the pipeline's hard time
// ceiling also kills a hung transcode.
func (t *Transcoder) ToPCM(ctx context.Context, audio []byte) ([]int16, error) {
	cmd := exec.CommandContext(ctx, t.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(audio)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode failed: %w (%s)", err, strings.TrimSpace(errOut.String()))
	}
	return BytesToPCM(out.Bytes()), nil
}

// BytesToPCM reinterprets little-endian s16le bytes as samples. A trailing
// odd byte is dropped.
func BytesToPCM(raw []byte) []int16 {
	pcm := make([]int16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		pcm = append(pcm, int16(binary.LittleEndian.Uint16(raw[i:i+2])))
	}
	return pcm
}
