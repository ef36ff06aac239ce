package stt

import (
	"errors"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// segmentSampleRate is the rate every engine consumes; the listener
// captures at this rate and file input is resampled to it.
const segmentSampleRate = 16000

// encodeWAV writes mono float32 samples as 16-bit PCM WAV.
func encodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		data[i] = int(s * math.MaxInt16)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// DecodeWAVFile reads a WAV file and returns mono float32 samples at
// 16 kHz, downmixing and resampling as needed.
func DecodeWAVFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav file")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	samples := make([]float32, len(pb.Data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range pb.Data {
		samples[i] = float32(float64(v) * scale)
	}

	channels := 1
	rate := segmentSampleRate
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	if channels > 1 {
		samples = downmix(samples, channels)
	}
	if rate != segmentSampleRate {
		samples = resampleLinear(samples, rate, segmentSampleRate)
	}
	return samples, nil
}

func downmix(in []float32, channels int) []float32 {
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
