package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
)

const (
	syntheticSampleRate = 8000
	// roughly 150 spoken words per minute
	syntheticSamplesPerWord = syntheticSampleRate * 60 / 150
	syntheticMaxSeconds     = 600
)

// SyntheticSynthesizer emits a silent mono WAV whose duration tracks the word
// count. It is wired when no speech provider credentials are configured.
type SyntheticSynthesizer struct{}

func NewSyntheticSynthesizer() *SyntheticSynthesizer {
	return &SyntheticSynthesizer{}
}

func (s *SyntheticSynthesizer) Name() string { return syntheticProviderName }

func (s *SyntheticSynthesizer) Synthesize(ctx context.Context, text, voiceID string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	samples := min(words*syntheticSamplesPerWord, syntheticMaxSeconds*syntheticSampleRate)
	return Result{Data: silentWAV(samples), MIME: "audio/wav"}, nil
}

func silentWAV(samples int) []byte {
	const bitsPerSample = 8
	dataSize := uint32(samples)
	var buf bytes.Buffer
	buf.Grow(44 + samples)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(syntheticSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(syntheticSampleRate*bitsPerSample/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	// 8-bit PCM silence is the midpoint value
	buf.Write(bytes.Repeat([]byte{0x80}, samples))
	return buf.Bytes()
}

var _ Synthesizer = (*SyntheticSynthesizer)(nil)
