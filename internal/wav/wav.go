// Package wav converts the raw PCM audio returned by the speech endpoint
// into a self-contained playable WAV container.
package wav

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// DecodingError reports malformed base64 PCM input.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("wav: decode pcm: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// header is the 44-byte RIFF/WAVE header. All integer fields little-endian.
type header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data length
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data length
}

// Encode wraps base64-encoded signed 16-bit mono little-endian PCM in a
// minimal WAV container. The transform is deterministic and pure: the same
// input always yields a byte-identical buffer of exactly 44+len(pcm) bytes.
// The service delivers 24000 Hz audio, but any positive rate is accepted.
//
// Expectations:
//   - Output is 44 + decoded-byte-length bytes
//   - Bytes [0:4]="RIFF", [8:12]="WAVE", [36:40]="data"
//   - Little-endian uint32 at offset 40 equals the decoded byte length
//   - Malformed base64 yields a *DecodingError
//   - Non-positive sample rate is rejected
func Encode(pcmBase64 string, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wav: sample rate must be positive, got %d", sampleRate)
	}

	pcm, err := base64.StdEncoding.DecodeString(pcmBase64)
	if err != nil {
		return nil, &DecodingError{Err: err}
	}

	h := header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}
