package models

import (
	"regexp"
	"testing"
)

func TestIDFormats(t *testing.T) {
	convRe := regexp.MustCompile(`^conv-[0-9a-f]{12}$`)
	msgRe := regexp.MustCompile(`^msg-[0-9a-f]{12}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		cid, mid := NewConversationID(), NewMessageID()
		if !convRe.MatchString(cid) {
			t.Fatalf("conversation id %q", cid)
		}
		if !msgRe.MatchString(mid) {
			t.Fatalf("message id %q", mid)
		}
		if seen[cid] || seen[mid] {
			t.Fatalf("duplicate id generated")
		}
		seen[cid], seen[mid] = true, true
	}
}

func TestProviderSupports(t *testing.T) {
	p := &ProviderConfig{Models: StringList{"gpt-4o", " Claude-3-Opus "}}

	if !p.Supports("gpt-4o") {
		t.Error("exact match should be supported")
	}
	if !p.Supports("claude-3-opus") {
		t.Error("match should ignore case and padding")
	}
	if p.Supports("gemini-pro") {
		t.Error("undeclared model should not be supported")
	}
}

func TestStringListRoundTrip(t *testing.T) {
	in := StringList{"oncology", "trials"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out StringList
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(out) != 2 || out[0] != "oncology" || out[1] != "trials" {
		t.Errorf("round trip = %v", out)
	}

	var empty StringList
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("nil scan = %v, want empty", empty)
	}
}
