package wav

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
)

// pcmFixture returns base64-encoded PCM for n little-endian int16 samples.
func pcmFixture(samples []int16) string {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestEncode_SizeAndMarkers(t *testing.T) {
	// Output is 44 + decoded-byte-length bytes with RIFF/WAVE/data markers
	samples := []int16{100, -200, 300, -400, 500}
	out, err := Encode(pcmFixture(samples), 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	wantLen := 44 + len(samples)*2
	if len(out) != wantLen {
		t.Errorf("length: got %d, want %d", len(out), wantLen)
	}
	if string(out[0:4]) != "RIFF" {
		t.Errorf("bytes [0:4]: got %q, want RIFF", out[0:4])
	}
	if string(out[8:12]) != "WAVE" {
		t.Errorf("bytes [8:12]: got %q, want WAVE", out[8:12])
	}
	if string(out[36:40]) != "data" {
		t.Errorf("bytes [36:40]: got %q, want data", out[36:40])
	}
}

func TestEncode_DataLengthAtOffset40(t *testing.T) {
	// Little-endian uint32 at offset 40 equals the decoded byte length
	samples := []int16{1, 2, 3, 4, 5, 6, 7}
	out, err := Encode(pcmFixture(samples), 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got := binary.LittleEndian.Uint32(out[40:44])
	if got != uint32(len(samples)*2) {
		t.Errorf("data size: got %d, want %d", got, len(samples)*2)
	}
}

func TestEncode_HeaderFields(t *testing.T) {
	// Sample rate, byte rate, block align, and bit depth are written little-endian
	out, err := Encode(pcmFixture([]int16{0}), 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 24000 {
		t.Errorf("sample rate: got %d, want 24000", rate)
	}
	if byteRate := binary.LittleEndian.Uint32(out[28:32]); byteRate != 48000 {
		t.Errorf("byte rate: got %d, want 48000", byteRate)
	}
	if align := binary.LittleEndian.Uint16(out[32:34]); align != 2 {
		t.Errorf("block align: got %d, want 2", align)
	}
	if bits := binary.LittleEndian.Uint16(out[34:36]); bits != 16 {
		t.Errorf("bits per sample: got %d, want 16", bits)
	}
	if format := binary.LittleEndian.Uint16(out[20:22]); format != 1 {
		t.Errorf("audio format: got %d, want 1 (PCM)", format)
	}
	if channels := binary.LittleEndian.Uint16(out[22:24]); channels != 1 {
		t.Errorf("channels: got %d, want 1", channels)
	}
	if chunkSize := binary.LittleEndian.Uint32(out[4:8]); chunkSize != 36+2 {
		t.Errorf("chunk size: got %d, want %d", chunkSize, 36+2)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	// Same inputs yield byte-identical output on repeated calls
	in := pcmFixture([]int16{12, -34, 56, -78})
	a, err := Encode(in, 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Encode(in, 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("repeated Encode calls produced different buffers")
	}
}

func TestEncode_EmptyPayload(t *testing.T) {
	// Empty base64 input yields a bare 44-byte header
	out, err := Encode("", 24000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(out) != 44 {
		t.Errorf("length: got %d, want 44", len(out))
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != 0 {
		t.Errorf("data size: got %d, want 0", got)
	}
}

func TestEncode_AcceptsAnyPositiveRate(t *testing.T) {
	// A non-default rate is written through unchanged
	out, err := Encode(pcmFixture([]int16{1}), 8000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 8000 {
		t.Errorf("sample rate: got %d, want 8000", rate)
	}
}

func TestEncode_MalformedBase64(t *testing.T) {
	// Malformed base64 yields a *DecodingError
	_, err := Encode("not base64!!!", 24000)
	if err == nil {
		t.Fatal("expected error for malformed base64")
	}
	var de *DecodingError
	if !errors.As(err, &de) {
		t.Errorf("error type: got %T, want *DecodingError", err)
	}
}

func TestEncode_RejectsNonPositiveRate(t *testing.T) {
	// Zero and negative sample rates are rejected
	if _, err := Encode("", 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := Encode("", -24000); err == nil {
		t.Error("expected error for negative sample rate")
	}
}
