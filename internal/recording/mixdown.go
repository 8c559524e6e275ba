package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/MKA06/luron-voice/internal/audio"
	"github.com/MKA06/luron-voice/internal/storage"
)

// GainConfig controls the conservative quiet-audio rescue applied to each
// channel before interleaving. Values encode a product choice, not a derived
// invariant; defaults are carried as-is.
type GainConfig struct {
	TriggerPeak int16   // boost only when peak is below this (5% of full scale)
	TargetPeak  float64 // boost toward this peak (15% of full scale)
	MaxGain     float64 // never boost by more than this factor
}

func DefaultGainConfig() GainConfig {
	return GainConfig{TriggerPeak: 1638, TargetPeak: 4915.0, MaxGain: 3.0}
}

// Mixdown reconstructs the call as stereo WAV bytes: caller on the left
// channel, assistant on the right. Open segments are closed at now. Returns
// the WAV bytes and the recording duration in seconds; ok is false when the
// call captured no audio at all.
func (r *Recorder) Mixdown(now float64, gain GainConfig) (wav []byte, duration float64, ok bool) {
	caller, assistant := r.finalize(now)
	if len(caller) == 0 && len(assistant) == 0 {
		return nil, 0, false
	}

	var totalLen float64
	for _, s := range caller {
		if s.End > totalLen {
			totalLen = s.End
		}
	}
	for _, s := range assistant {
		if s.End > totalLen {
			totalLen = s.End
		}
	}

	totalSamples := int(totalLen * float64(r.sampleRate))
	callerTrack := silentTrack(totalSamples)
	assistantTrack := silentTrack(totalSamples)

	placeSegments(callerTrack, caller, r.sampleRate)
	placeSegments(assistantTrack, assistant, r.sampleRate)

	left := audio.DecodeMuLawSamples(callerTrack)
	right := audio.DecodeMuLawSamples(assistantTrack)
	applyGainRescue(left, gain)
	applyGainRescue(right, gain)

	stereo := make([]int16, len(left)*2)
	for i := range left {
		stereo[i*2] = left[i]
		stereo[i*2+1] = right[i]
	}

	return audio.WriteWAV(audio.PCMBytes(stereo), r.sampleRate, 2), totalLen, true
}

func silentTrack(samples int) []byte {
	track := make([]byte, samples)
	for i := range track {
		track[i] = audio.MuLawSilence
	}
	return track
}

// placeSegments copies each closed segment into the track at its start
// offset, truncating buffers that outlived their allotted slot (barge-in
// leaves more synthesized bytes in a segment than its timeline span allows).
func placeSegments(track []byte, segments []Segment, sampleRate int) {
	for _, s := range segments {
		startSample := int(s.Start * float64(sampleRate))
		maxSamples := int((s.End - s.Start) * float64(sampleRate))
		data := s.Data
		if len(data) > maxSamples {
			data = data[:maxSamples]
		}
		end := startSample + len(data)
		if startSample >= 0 && end <= len(track) {
			copy(track[startSample:end], data)
		}
	}
}

// applyGainRescue boosts extremely quiet audio in place. One-directional:
// never attenuates, never normalizes downward.
func applyGainRescue(samples []int16, cfg GainConfig) {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 || peak >= int32(cfg.TriggerPeak) {
		return
	}

	gain := cfg.TargetPeak / float64(peak)
	if gain > cfg.MaxGain {
		gain = cfg.MaxGain
	}
	for i, s := range samples {
		v := float64(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
}

// SaveRecording mixes the call down and uploads the WAV. When the call
// captured no audio it performs no upload and returns an empty URL.
func (r *Recorder) SaveRecording(ctx context.Context, uploader storage.Uploader, agentID, callSid string, now float64) (url string, duration float64, err error) {
	wav, duration, ok := r.Mixdown(now, DefaultGainConfig())
	if !ok {
		return "", 0, nil
	}

	name := fmt.Sprintf("%s/%s_%s.wav", agentID, callSid, time.Now().UTC().Format("20060102_150405"))
	url, err = uploader.UploadBytes(ctx, name, "audio/wav", wav)
	if err != nil {
		return "", duration, err
	}
	return url, duration, nil
}
