package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func wavHeader(format uint16, rate uint32) []byte {
	h := make([]byte, wavHeaderSize)
	copy(h[0:4], "RIFF")
	copy(h[8:12], "WAVE")
	binary.LittleEndian.PutUint16(h[20:22], format)
	binary.LittleEndian.PutUint16(h[22:24], 1)
	binary.LittleEndian.PutUint32(h[24:28], rate)
	return h
}

func TestLoadAudio_Silence(t *testing.T) {
	audio, err := loadAudio("", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audio) != 16000 {
		t.Fatalf("expected 16000 bytes, got %d", len(audio))
	}
	for i, b := range audio {
		if b != silence {
			t.Fatalf("byte %d: expected silence, got %#x", i, b)
		}
	}
}

func TestLoadAudio_Files(t *testing.T) {
	dir := t.TempDir()
	body := []byte{1, 2, 3, 4}

	raw := filepath.Join(dir, "call.ulaw")
	if err := os.WriteFile(raw, body, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := loadAudio(raw, 0)
	if err != nil || string(got) != string(body) {
		t.Errorf("raw file: got %v, %v", got, err)
	}

	wav := filepath.Join(dir, "call.wav")
	if err := os.WriteFile(wav, append(wavHeader(wavFormatMuLaw, 8000), body...), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = loadAudio(wav, 0)
	if err != nil || string(got) != string(body) {
		t.Errorf("mu-law wav: got %v, %v", got, err)
	}

	pcm := filepath.Join(dir, "pcm.wav")
	if err := os.WriteFile(pcm, append(wavHeader(1, 8000), body...), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadAudio(pcm, 0); err == nil {
		t.Error("expected error for PCM wav")
	}

	if _, err := loadAudio(filepath.Join(dir, "missing"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}
