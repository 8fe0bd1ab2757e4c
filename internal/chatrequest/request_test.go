package chatrequest

import "testing"

func TestRequest_SubagentOverrideTarget(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantTarget string
		wantOK     bool
	}{
		{"present", "<CCR-SUBAGENT-MODEL>pZ,mZ</CCR-SUBAGENT-MODEL>Explain this", "pZ,mZ", true},
		{"absent", "Explain this", "", false},
		{"unterminated", "<CCR-SUBAGENT-MODEL>pZ,mZ", "", false},
		{"empty target", "<CCR-SUBAGENT-MODEL></CCR-SUBAGENT-MODEL>rest", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Messages: []Message{{Role: "user", Content: []ContentBlock{{Type: "text", Text: tt.text}}}}}

			target, ok := req.SubagentOverrideTarget()
			if ok != tt.wantOK || target != tt.wantTarget {
				t.Errorf("SubagentOverrideTarget() = (%q, %v), want (%q, %v)", target, ok, tt.wantTarget, tt.wantOK)
			}
		})
	}
}

func TestRequest_SubagentOverrideIgnoresNonUserFirstMessage(t *testing.T) {
	req := Request{Messages: []Message{
		{Role: "system", Content: []ContentBlock{{Text: "<CCR-SUBAGENT-MODEL>pZ,mZ</CCR-SUBAGENT-MODEL>"}}},
		{Role: "user", Content: []ContentBlock{{Text: "hello"}}},
	}}

	if _, ok := req.SubagentOverrideTarget(); ok {
		t.Error("SubagentOverrideTarget() matched a system message; want it scoped to the first user message")
	}
}

func TestRequest_WantsWebSearch(t *testing.T) {
	req := Request{Tools: []Tool{{Type: "web_search_20250305"}}}
	if !req.WantsWebSearch() {
		t.Error("WantsWebSearch() = false, want true for a web_search_* tool type")
	}

	req2 := Request{Tools: []Tool{{Type: "custom", Name: "web_search"}}}
	if !req2.WantsWebSearch() {
		t.Error("WantsWebSearch() = false, want true for a tool named web_search")
	}

	req3 := Request{Tools: []Tool{{Type: "calculator"}}}
	if req3.WantsWebSearch() {
		t.Error("WantsWebSearch() = true, want false when no tool advertises web search")
	}
}

func TestRequest_WantsThinking(t *testing.T) {
	if (Request{Thinking: &Thinking{Type: "enabled"}}).WantsThinking() != true {
		t.Error("WantsThinking() = false, want true when Thinking.Type is \"enabled\"")
	}
	if (Request{}).WantsThinking() != false {
		t.Error("WantsThinking() = true, want false when Thinking is nil")
	}
}

func TestRequest_IsBackgroundModel(t *testing.T) {
	req := Request{Model: "claude-3-5-haiku-20241022"}
	if !req.IsBackgroundModel("") {
		t.Error("IsBackgroundModel(\"\") = false, want true for the default marker")
	}
	if req.IsBackgroundModel("custom-marker") {
		t.Error("IsBackgroundModel(custom-marker) = true, want false")
	}
}

func TestMessage_TextConcatenatesTextBlocksOnly(t *testing.T) {
	msg := Message{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "image", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}

	if got := msg.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
}
