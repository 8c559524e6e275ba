package audio

// G.711 μ-law decoding. Telephony media and synthesized speech both arrive
// as 8-bit μ-law frames at 8 kHz; recording and post-call transcription need
// 16-bit linear PCM.

const (
	// SampleRate is the fixed telephony sample rate.
	SampleRate = 8000

	// MuLawSilence is the μ-law byte representing silence.
	MuLawSilence = 0xFF

	muLawBias = 0x84
)

// DecodeMuLawSample decodes a single μ-law byte to a 16-bit PCM sample.
func DecodeMuLawSample(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := int32(mantissa|0x10)<<(exponent+3) - muLawBias
	if sign != 0 {
		sample = -sample
	}
	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	return int16(sample)
}

// DecodeMuLaw converts μ-law bytes to 16-bit little-endian linear PCM.
// The output is exactly twice the input length.
func DecodeMuLaw(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		s := DecodeMuLawSample(b)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// DecodeMuLawSamples converts μ-law bytes to int16 samples.
func DecodeMuLawSamples(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = DecodeMuLawSample(b)
	}
	return out
}
