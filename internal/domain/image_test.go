package domain

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestResolveUnsentPassesBytesThrough(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	ref := UnsentImage("ref.png", "image/png", payload)

	resolved, err := ref.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Remote() {
		t.Fatalf("unsent image resolved as remote")
	}
	if !bytes.Equal(resolved.Bytes, payload) {
		t.Fatalf("bytes = %v, want %v", resolved.Bytes, payload)
	}
	if resolved.ContentType != "image/png" {
		t.Fatalf("contentType = %q", resolved.ContentType)
	}
}

func TestResolveEmbeddedDecodesDataURL(t *testing.T) {
	payload := []byte("sketch-bytes")
	ref := EmbeddedImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(payload))

	resolved, err := ref.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !bytes.Equal(resolved.Bytes, payload) {
		t.Fatalf("bytes = %q, want %q", resolved.Bytes, payload)
	}
	if resolved.ContentType != "image/png" {
		t.Fatalf("contentType = %q", resolved.ContentType)
	}
}

func TestResolveEmbeddedRejectsMalformedDataURL(t *testing.T) {
	cases := []string{
		"not-a-data-url",
		"data:image/png;base64",
		"data:image/png,plain-not-base64",
		"data:image/png;base64,@@@@",
	}
	for _, raw := range cases {
		if _, err := EmbeddedImage(raw).Resolve(); err == nil {
			t.Errorf("Resolve(%q): expected error", raw)
		}
	}
}

func TestResolveRemoteKeepsURL(t *testing.T) {
	ref := RemoteImage("https://assets.example.com/orders/01J/ref_g0_d0_0.png")

	resolved, err := ref.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.Remote() {
		t.Fatalf("remote image did not resolve as remote")
	}
	if len(resolved.Bytes) != 0 {
		t.Fatalf("remote image carried bytes")
	}
}

func TestResolveEmptyReferenceFails(t *testing.T) {
	if _, err := (ImageRef{State: ImageUnsent}).Resolve(); err == nil {
		t.Fatalf("empty unsent reference resolved without error")
	}
	if _, err := (ImageRef{State: ImageRemote}).Resolve(); err == nil {
		t.Fatalf("empty remote reference resolved without error")
	}
}

func TestOrderTotalSumsGarments(t *testing.T) {
	garments := []Garment{
		{Designs: []DesignRecord{{Amount: 500}, {Amount: 650}}},
		{Designs: []DesignRecord{{Amount: 1200}}},
	}
	if got := OrderTotal(garments); got != 2350 {
		t.Fatalf("OrderTotal = %d, want 2350", got)
	}
}
