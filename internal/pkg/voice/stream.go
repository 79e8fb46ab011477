package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

const (
	// readyTimeout bounds how long a joined connection may take to become
	// ready, separately from the overall pipeline ceiling.
	readyTimeout = 10 * time.Second

	// frameDuration is the playback time of one opus frame.
	frameDuration = 20 * time.Millisecond

	maxOpusFrameBytes = 3840
)

var errConnectionNeverReady = errors.New("voice connection never reached ready state")

// streamPCM joins the voice channel, waits for the connection to become
// ready, streams the PCM as opus frames and tears the connection down on
// every exit path.
func streamPCM(ctx context.Context, session *discordgo.Session, guildID, channelID string, pcm []int16) error {
	vc, err := session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	defer func() {
		_ = vc.Speaking(false)
		_ = vc.Disconnect()
	}()

	if err := waitReady(ctx, vc); err != nil {
		return err
	}
	if err := vc.Speaking(true); err != nil {
		return fmt.Errorf("failed to set speaking state: %w", err)
	}

	encoder, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}

	for _, frame := range Frames(pcm) {
		opus, err := encoder.Encode(frame, FrameSamples, maxOpusFrameBytes)
		if err != nil {
			return fmt.Errorf("opus encode failed: %w", err)
		}
		select {
		case vc.OpusSend <- opus:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// The last frames may still sit in the send buffer; let them play out
	// before the deferred disconnect cuts the stream.
	select {
	case <-time.After(sendFlushDelay(cap(vc.OpusSend))):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// sendFlushDelay is the playback time of a full send buffer plus one frame
// in flight.
func sendFlushDelay(bufferedFrames int) time.Duration {
	return time.Duration(bufferedFrames+1) * frameDuration
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	deadline := time.NewTimer(readyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		if vc.Ready {
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return errConnectionNeverReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
