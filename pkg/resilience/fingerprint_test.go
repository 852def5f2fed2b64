package resilience

import (
	"strings"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	payload := []byte(`{"model":"qwen2.5-7b","messages":[{"role":"user","content":"hi"}]}`)

	fp1 := Fingerprint("/v1/chat/completions", payload)
	fp2 := Fingerprint("/v1/chat/completions", payload)
	if fp1 != fp2 {
		t.Error("same request should produce same fingerprint")
	}
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := []byte(`{"model":"m","temperature":0.7,"messages":[{"role":"user","content":"hi"}]}`)
	b := []byte(`{"temperature":0.7,"messages":[{"content":"hi","role":"user"}],"model":"m"}`)

	if Fingerprint("/v1/chat/completions", a) != Fingerprint("/v1/chat/completions", b) {
		t.Error("semantically identical payloads should share a fingerprint")
	}
}

func TestFingerprintSeparatesEndpoints(t *testing.T) {
	payload := []byte(`{"model":"m"}`)

	fp1 := Fingerprint("/v1/chat/completions", payload)
	fp2 := Fingerprint("/v1/models", payload)
	if fp1 == fp2 {
		t.Error("fingerprints must never collide across endpoints")
	}
	if !strings.HasPrefix(fp1, "/v1/chat/completions#") {
		t.Errorf("fingerprint %q should carry its endpoint prefix", fp1)
	}
}

func TestFingerprintDistinguishesPayloads(t *testing.T) {
	fp1 := Fingerprint("/v1/chat/completions", []byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	fp2 := Fingerprint("/v1/chat/completions", []byte(`{"messages":[{"role":"user","content":"bye"}]}`))
	if fp1 == fp2 {
		t.Error("different payloads should not share a fingerprint")
	}
}

func TestFingerprintNilPayload(t *testing.T) {
	fp1 := Fingerprint("/v1/models", nil)
	fp2 := Fingerprint("/v1/models", nil)
	if fp1 != fp2 {
		t.Error("nil payload fingerprint should be stable")
	}
}
