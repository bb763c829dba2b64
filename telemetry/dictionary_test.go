package telemetry

import (
	"strings"
	"testing"

	"github.com/kfriesth/go-dmx512/tinycompress"
)

func TestDictionaryBuildAndDecompress(t *testing.T) {
	reg := NewRegistry()
	reg.Register("dmx_get_total_statistics", "", func(data *[]byte) error { return nil })
	reg.RegisterResponse("dmx_total_statistics_state", "dmx_packets=%u")

	dict := NewDictionary(reg, "0.0.1-alpha")
	if err := dict.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	compressed := dict.Generate()
	if len(compressed) == 0 {
		t.Fatal("expected a non-empty compressed dictionary")
	}

	raw, err := tinycompress.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	json := string(raw)
	if !strings.Contains(json, "dmx_get_total_statistics") {
		t.Fatalf("dictionary missing command name: %s", json)
	}
	if !strings.Contains(json, "dmx_total_statistics_state") {
		t.Fatalf("dictionary missing response name: %s", json)
	}
	if !strings.Contains(json, `"version":"0.0.1-alpha"`) {
		t.Fatalf("dictionary missing version: %s", json)
	}
}

func TestDictionaryChunking(t *testing.T) {
	reg := NewRegistry()
	reg.Register("dmx_get_total_statistics", "", func(data *[]byte) error { return nil })

	dict := NewDictionary(reg, "0.0.1-alpha")
	if err := dict.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	full := dict.Generate()
	var reassembled []byte
	const chunkSize = 8
	for offset := uint32(0); offset < uint32(len(full)); offset += chunkSize {
		chunk := dict.Chunk(offset, chunkSize)
		if len(chunk) == 0 {
			t.Fatalf("unexpected empty chunk at offset %d", offset)
		}
		reassembled = append(reassembled, chunk...)
	}

	if string(reassembled) != string(full) {
		t.Fatal("chunked reassembly does not match the full dictionary")
	}
}
