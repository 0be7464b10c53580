package sink

import "testing"

func TestParseTemplateSubstitutesKnownFields(t *testing.T) {
	segs, err := parseTemplate("notify-send {application}: {summary}")
	if err != nil {
		t.Fatalf("parseTemplate: %v", err)
	}
	got := render(segs, map[string]string{"application": "chat", "summary": "hi"})
	want := "notify-send chat: hi"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestParseTemplateEscapedBraces(t *testing.T) {
	segs, err := parseTemplate("literal {{brace}} and {id}")
	if err != nil {
		t.Fatalf("parseTemplate: %v", err)
	}
	got := render(segs, map[string]string{"id": "42"})
	want := "literal {brace} and 42"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestParseTemplateRejectsUnknownField(t *testing.T) {
	if _, err := parseTemplate("{bogus}"); err == nil {
		t.Error("expected an error for an unknown field name")
	}
}

func TestParseTemplateRejectsUnterminatedBrace(t *testing.T) {
	if _, err := parseTemplate("hello {id"); err == nil {
		t.Error("expected an error for an unterminated '{'")
	}
}

func TestParseTemplateRejectsRawClosingBrace(t *testing.T) {
	if _, err := parseTemplate("hello }"); err == nil {
		t.Error("expected an error for a raw unescaped '}'")
	}
}

func TestParseTemplateAllFields(t *testing.T) {
	tmpl := "{id} {application} {summary} {body} {category} {urgency}"
	segs, err := parseTemplate(tmpl)
	if err != nil {
		t.Fatalf("parseTemplate: %v", err)
	}
	got := render(segs, map[string]string{
		"id": "1", "application": "a", "summary": "s",
		"body": "b", "category": "c", "urgency": "normal",
	})
	want := "1 a s b c normal"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}
