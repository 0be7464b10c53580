package protocol

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestRoundTrip(t *testing.T) {
	msg := NewNotify("chat", "hi", "there", WithUrgency(UrgencyCritical), WithCategory("im"), WithID("abc-123"))

	frame, err := msg.Encode(CurrentVersion)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !msg.Equal(decoded) {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}

	again, err := decoded.Encode(CurrentVersion)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(again) != string(frame) {
		t.Fatalf("re-encode did not reproduce original bytes")
	}
}

func TestDefaultElision(t *testing.T) {
	withDefaults := NewNotify("app", "s", "b")
	withExplicitDefault := NewNotify("app", "s", "b", WithUrgency(UrgencyLow))

	b1, err := withDefaults.Encode(CurrentVersion)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := withExplicitDefault.Encode(CurrentVersion)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("explicit default produced different bytes than omission")
	}
}

func TestDecodeRejectsNonMapping(t *testing.T) {
	// A msgpack-encoded array, not a map.
	arr := []byte{0x90} // fixarray of length 0
	if _, err := Decode(arr); err == nil {
		t.Fatal("expected error decoding a non-mapping frame")
	}
}

func TestDecodeMissingRequiredArg(t *testing.T) {
	notifyNoSummary := map[string]any{
		"__version__": 0,
		"msg_type":    "notify",
		"app_name":    "x",
		"body":        "y",
	}
	frame := mustMarshal(t, notifyNoSummary)
	if _, err := Decode(frame); err == nil {
		t.Fatal("expected error decoding notify missing summary")
	}
}

func TestDecodeUnknownTypePassesThrough(t *testing.T) {
	future := map[string]any{
		"__version__": 0,
		"msg_type":    "ping",
		"nonce":       "xyz",
	}
	frame := mustMarshal(t, future)
	msg, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode unknown type: %v", err)
	}
	if msg.Type() != TypeUnknown {
		t.Fatalf("expected TypeUnknown, got %v", msg.Type())
	}
	if msg.RawType() != "ping" {
		t.Fatalf("expected RawType ping, got %q", msg.RawType())
	}
	v, err := msg.Arg("nonce")
	if err != nil || v != "xyz" {
		t.Fatalf("expected nonce=xyz, got %v, err=%v", v, err)
	}
}

func TestArgUnknownVsPresentNull(t *testing.T) {
	msg := NewNotify("app", "s", "b")

	v, err := msg.Arg("category")
	if err != nil {
		t.Fatalf("category should be a known but defaulted arg: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil category, got %v", v)
	}

	_, err = msg.Arg("does_not_exist")
	if err == nil {
		t.Fatal("expected ErrUnknownArg for a name outside the type's schema")
	}
}

func TestEncodeUnsupportedVersion(t *testing.T) {
	msg := NewGoodbye()
	if _, err := msg.Encode(CurrentVersion + 1); err == nil {
		t.Fatal("expected error encoding into an unsupported version")
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
