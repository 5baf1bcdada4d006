package chat

import (
	"fmt"
	"reflect"
	"testing"
)

func TestHistoryWindow_Empty(t *testing.T) {
	got := HistoryWindow(nil, HistoryLimit)
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(got))
	}
}

func TestHistoryWindow_ShorterThanLimit(t *testing.T) {
	transcript := []Message{
		{ID: 1, Role: RoleUser, Text: "hi"},
		{ID: 2, Role: RoleAssistant, Text: "hello"},
	}
	got := HistoryWindow(transcript, HistoryLimit)
	want := []HistoryEntry{
		{Role: "user", Text: "hi"},
		{Role: "assistant", Text: "hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("history mismatch: got=%v want=%v", got, want)
	}
}

func TestHistoryWindow_KeepsMostRecentTenInOrder(t *testing.T) {
	var transcript []Message
	for i := 0; i < 25; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		transcript = append(transcript, Message{ID: int64(i), Role: role, Text: fmt.Sprintf("m%d", i)})
	}

	got := HistoryWindow(transcript, HistoryLimit)
	if len(got) != HistoryLimit {
		t.Fatalf("expected %d entries, got %d", HistoryLimit, len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("m%d", 15+i)
		if e.Text != want {
			t.Fatalf("entry %d: got %q want %q", i, e.Text, want)
		}
	}
}

func TestHistoryWindow_DropsAttachments(t *testing.T) {
	transcript := []Message{
		{ID: 1, Role: RoleAssistant, Text: "chart below", Images: []string{"aW1n"}},
		{ID: 2, Role: RoleAssistant, Text: "sheet", File: &File{Name: "export.xlsx", Data: "eA=="}},
	}
	got := HistoryWindow(transcript, HistoryLimit)
	want := []HistoryEntry{
		{Role: "assistant", Text: "chart below"},
		{Role: "assistant", Text: "sheet"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected role/text projection only, got %v", got)
	}
}
