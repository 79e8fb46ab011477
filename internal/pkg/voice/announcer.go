package voice

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/orbitkey/payrelay/internal/pkg/discord"
	"github.com/orbitkey/payrelay/internal/pkg/env"
	"github.com/orbitkey/payrelay/internal/pkg/goroutine"
)

const (
	// pipelineCeiling is the hard per-announcement budget; every state of the
	// pipeline guarantees teardown by the time it expires.
	pipelineCeiling = 30 * time.Second

	// DefaultAmountThreshold is the minimum payment (minor units) that
	// triggers an announcement.
	DefaultAmountThreshold = 500

	// DefaultTestSentinel is the payer name that always triggers an
	// announcement regardless of amount, for end-to-end testing.
	DefaultTestSentinel = "voicetest"

	queueCapacity = 8
)

// Job is one queued announcement.
type Job struct {
	ID          string
	PayerName   string
	AmountTotal int64
	Text        string // speech text; empty plays the test tone instead
}

// Announcer serializes announcements through a single worker so at most one
// voice session is in flight; the transport only allows one connection per
// community anyway. Enqueueing never blocks the caller.
type Announcer struct {
	client     *discord.Client
	tts        *TTSClient
	transcoder *Transcoder

	threshold int64
	sentinel  string

	jobs      chan Job
	startOnce sync.Once
}

// NewAnnouncerFromEnv wires the pipeline against the shared bot client.
func NewAnnouncerFromEnv(client *discord.Client) *Announcer {
	threshold := int64(DefaultAmountThreshold)
	if raw := strings.TrimSpace(env.GetEnv("ANNOUNCE_MIN_AMOUNT", "")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			threshold = v
		}
	}

	return &Announcer{
		client:     client,
		tts:        NewTTSClient(),
		transcoder: NewTranscoderFromEnv(),
		threshold:  threshold,
		sentinel:   env.GetEnv("ANNOUNCE_TEST_NAME", DefaultTestSentinel),
		jobs:       make(chan Job, queueCapacity),
	}
}

// Start launches the single worker goroutine. Safe to call more than once.
func (a *Announcer) Start() {
	a.startOnce.Do(func() {
		goroutine.SafeGo("voice-announcer", a.worker)
	})
}

// ShouldAnnounce applies the trigger policy: the amount meets the threshold,
// or the payer name matches the test sentinel.
func (a *Announcer) ShouldAnnounce(job Job) bool {
	if strings.EqualFold(strings.TrimSpace(job.PayerName), a.sentinel) {
		return true
	}
	return job.AmountTotal >= a.threshold
}

// Enqueue queues an announcement without blocking; a full queue drops the
// job and reports false. Callers never wait on the pipeline.
func (a *Announcer) Enqueue(job Job) bool {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	select {
	case a.jobs <- job:
		return true
	default:
		log.Warnf("[Voice] queue full, dropping announcement %s", job.ID)
		return false
	}
}

func (a *Announcer) worker() {
	for job := range a.jobs {
		if !a.ShouldAnnounce(job) {
			log.Infof("[Voice] skipping announcement %s: amount %d below threshold and name is not the test sentinel", job.ID, job.AmountTotal)
			continue
		}
		if err := a.run(job); err != nil {
			log.Errorf("[Voice] announcement %s failed: %v", job.ID, err)
		}
	}
}

// run executes one announcement under the hard ceiling. Connection teardown
// happens inside streamPCM on every exit path.
func (a *Announcer) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineCeiling)
	defer cancel()

	if a.client.GuildID == "" || a.client.VoiceChannelID == "" {
		return errors.New("voice guild/channel not configured")
	}

	pcm, err := a.preparePCM(ctx, job)
	if err != nil {
		return err
	}

	log.Infof("[Voice] playing announcement %s (%d samples)", job.ID, len(pcm))
	return streamPCM(ctx, a.client.Session, a.client.GuildID, a.client.VoiceChannelID, pcm)
}

func (a *Announcer) preparePCM(ctx context.Context, job Job) ([]int16, error) {
	if strings.TrimSpace(job.Text) == "" {
		return GenerateTone(440, 2*time.Second), nil
	}
	if !a.transcoder.Available() {
		log.Warnf("[Voice] ffmpeg not found, playing tone instead of speech for announcement %s", job.ID)
		return GenerateTone(440, 2*time.Second), nil
	}

	audio, err := a.tts.Fetch(ctx, job.Text)
	if err != nil {
		return nil, err
	}
	return a.transcoder.ToPCM(ctx, audio)
}
