package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUndecodableAudio is matched by every *DecodeError.
var ErrUndecodableAudio = errors.New("undecodable audio")

// ErrFormatMismatch reports WAV inputs that cannot be joined sample for sample.
var ErrFormatMismatch = errors.New("wav format mismatch")

const pcmFormat = 1

// DecodeError reports a file whose WAV header or sample data is unreadable.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrUndecodableAudio }

// ErrorKind classifies the failure for pipeline status mapping.
func (e *DecodeError) ErrorKind() string { return "decode" }

// Info describes a WAV file.
type Info struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Frames     int64
}

// Seconds returns frames / sample rate.
func (i Info) Seconds() float64 {
	if i.SampleRate <= 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

func (i Info) sameFormat(other Info) bool {
	return i.Channels == other.Channels && i.SampleRate == other.SampleRate && i.BitDepth == other.BitDepth
}

// Probe reads the header of the WAV at path. A missing file returns the
// underlying *fs.PathError; anything else wrong with the file is a *DecodeError.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, err
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, &DecodeError{Path: path, Err: err}
	}
	info, err := headerInfo(dec)
	if err != nil {
		return Info{}, &DecodeError{Path: path, Err: err}
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, &DecodeError{Path: path, Err: err}
	}

	// Streaming encoders leave a placeholder data size; fall back to the file length.
	pcmBytes := int64(dec.PCMSize)
	if pcmBytes <= 0 || pcmBytes > stat.Size() {
		pcmBytes = 0
		if pos, err := f.Seek(0, io.SeekCurrent); err == nil && stat.Size() > pos {
			pcmBytes = stat.Size() - pos
		}
	}
	blockAlign := int64(info.Channels * info.BitDepth / 8)
	info.Frames = pcmBytes / blockAlign
	return info, nil
}

// Duration returns the measured length of the WAV at path in seconds.
func Duration(path string) (float64, error) {
	info, err := Probe(path)
	if err != nil {
		return 0, err
	}
	return info.Seconds(), nil
}

// Concat writes the concatenation of srcs to dst. All inputs must share
// channel count, sample rate and bit depth.
func Concat(dst string, srcs ...string) error {
	if len(srcs) == 0 {
		return errors.New("concat: no input files")
	}
	var (
		combined *goaudio.IntBuffer
		first    Info
	)
	for _, src := range srcs {
		buf, info, err := readPCM(src)
		if err != nil {
			return err
		}
		if combined == nil {
			combined = buf
			first = info
			continue
		}
		if !first.sameFormat(info) {
			return fmt.Errorf("%w: %s is %dch/%dHz/%dbit, expected %dch/%dHz/%dbit", ErrFormatMismatch,
				src, info.Channels, info.SampleRate, info.BitDepth, first.Channels, first.SampleRate, first.BitDepth)
		}
		combined.Data = append(combined.Data, buf.Data...)
	}
	return writePCM(dst, combined, first)
}

// PadSilence writes src to dst with seconds of trailing silence appended.
// The narration itself is never shortened.
func PadSilence(src, dst string, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("pad silence: invalid duration %v", seconds)
	}
	buf, info, err := readPCM(src)
	if err != nil {
		return err
	}
	frames := int(math.Round(seconds * float64(info.SampleRate)))
	if frames > 0 {
		buf.Data = append(buf.Data, make([]int, frames*info.Channels)...)
	}
	return writePCM(dst, buf, info)
}

// WriteSilence writes a WAV of the given length containing only silence.
func WriteSilence(dst string, seconds float64, sampleRate, channels, bitDepth int) error {
	if seconds < 0 || sampleRate <= 0 || channels <= 0 || bitDepth <= 0 {
		return fmt.Errorf("write silence: invalid parameters")
	}
	frames := int(math.Round(seconds * float64(sampleRate)))
	info := Info{Channels: channels, SampleRate: sampleRate, BitDepth: bitDepth}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	return writePCM(dst, buf, info)
}

func headerInfo(dec *wav.Decoder) (Info, error) {
	info := Info{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	switch {
	case dec.WavAudioFormat != pcmFormat:
		return Info{}, fmt.Errorf("unsupported wav audio format %d", dec.WavAudioFormat)
	case info.Channels <= 0:
		return Info{}, errors.New("wav header has no channels")
	case info.SampleRate <= 0:
		return Info{}, errors.New("wav header has no sample rate")
	case info.BitDepth <= 0 || info.BitDepth%8 != 0:
		return Info{}, fmt.Errorf("unsupported bit depth %d", info.BitDepth)
	}
	return info, nil
}

func readPCM(path string) (*goaudio.IntBuffer, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, Info{}, &DecodeError{Path: path, Err: err}
	}
	info, err := headerInfo(dec)
	if err != nil {
		return nil, Info{}, &DecodeError{Path: path, Err: err}
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, &DecodeError{Path: path, Err: err}
	}
	info.Frames = int64(len(buf.Data) / info.Channels)
	return buf, info, nil
}

// writePCM encodes buf into a temporary sibling of dst and renames it into place.
func writePCM(dst string, buf *goaudio.IntBuffer, info Info) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if buf.Format == nil {
		buf.Format = &goaudio.Format{}
	}
	buf.Format.NumChannels = info.Channels
	buf.Format.SampleRate = info.SampleRate
	buf.SourceBitDepth = info.BitDepth

	enc := wav.NewEncoder(tmp, info.SampleRate, info.BitDepth, info.Channels, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return fail(fmt.Errorf("encode wav: %w", err))
	}
	if err := enc.Close(); err != nil {
		return fail(fmt.Errorf("finalize wav: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp wav: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp wav: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename wav into place: %w", err)
	}
	return nil
}
