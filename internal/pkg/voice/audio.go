package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// SampleRate and Channels are what the voice transport expects.
	SampleRate = 48000
	Channels   = 2

	// FrameSamples is samples per channel per 20ms opus frame.
	FrameSamples = 960

	defaultTTSBaseURL = "https://translate.google.com/translate_tts"
	maxTTSBytes       = 4 << 20
)

// TTSClient fetches synthesized speech audio (MP3) for a short text from the
// translate TTS endpoint.
type TTSClient struct {
	BaseURL    string
	Language   string
	HTTPClient *http.Client
}

func NewTTSClient() *TTSClient {
	return &TTSClient{
		BaseURL:  defaultTTSBaseURL,
		Language: "en",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch returns the raw synthesized audio for text.
func (c *TTSClient) Fetch(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts text is empty")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", c.Language)
	q.Set("q", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tts fetch failed: status=%d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxTTSBytes))
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("tts fetch returned no audio")
	}
	return audio, nil
}

// GenerateTone produces a sine test tone already in the transport's PCM
// format (48kHz stereo s16le), so it skips the transcode step.
func GenerateTone(freq float64, duration time.Duration) []int16 {
	total := int(float64(SampleRate) * duration.Seconds())
	pcm := make([]int16, 0, total*Channels)
	for i := 0; i < total; i++ {
		sample := int16(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(SampleRate)))
		pcm = append(pcm, sample, sample)
	}
	return pcm
}

// Frames splits interleaved stereo PCM into fixed-size opus frames of
// FrameSamples per channel; the final short frame is zero-padded.
func Frames(pcm []int16) [][]int16 {
	frameLen := FrameSamples * Channels
	if len(pcm) == 0 {
		return nil
	}

	var frames [][]int16
	for start := 0; start < len(pcm); start += frameLen {
		end := start + frameLen
		if end <= len(pcm) {
			frames = append(frames, pcm[start:end])
			continue
		}
		padded := make([]int16, frameLen)
		copy(padded, pcm[start:])
		frames = append(frames, padded)
	}
	return frames
}
