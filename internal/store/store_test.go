package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"ragchat/internal/chat"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "sessions.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndLatestSession(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LatestSession(); err != nil || ok {
		t.Fatalf("expected no sessions yet: ok=%v err=%v", ok, err)
	}

	sess, err := s.CreateSession("webindex-ab12")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID == "" || sess.IndexName != "webindex-ab12" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	latest, ok, err := s.LatestSession()
	if err != nil || !ok {
		t.Fatalf("latest session: ok=%v err=%v", ok, err)
	}
	if latest.ID != sess.ID {
		t.Fatalf("expected latest=%s, got %s", sess.ID, latest.ID)
	}
}

func TestSaveLoadTranscriptRoundTrip(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("webindex-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	transcript := []chat.Message{
		{ID: 10, Role: chat.RoleUser, Text: "show sales"},
		{ID: 11, Role: chat.RoleAssistant, Text: "Generated bar: sales", Images: []string{"aW1nMQ==", "aW1nMg=="}},
		{ID: 12, Role: chat.RoleUser, Text: "export it"},
		{ID: 13, Role: chat.RoleAssistant, Text: "Excel file generated.", File: &chat.File{Name: "sales.xlsx", Data: "UEsDBA=="}},
	}
	if err := s.SaveTranscript(sess.ID, transcript); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	got, err := s.LoadTranscript(sess.ID)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if !reflect.DeepEqual(got, transcript) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, transcript)
	}
}

func TestSaveTranscriptReplacesWholesale(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("webindex-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	first := []chat.Message{{ID: 1, Role: chat.RoleUser, Text: "one"}}
	if err := s.SaveTranscript(sess.ID, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := []chat.Message{
		{ID: 1, Role: chat.RoleUser, Text: "one"},
		{ID: 2, Role: chat.RoleAssistant, Text: "answer"},
	}
	if err := s.SaveTranscript(sess.ID, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.LoadTranscript(sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected replaced transcript of 2, got %d", len(got))
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if sessions[0].MessageCount != 2 {
		t.Fatalf("expected message_count=2, got %d", sessions[0].MessageCount)
	}
	if sessions[0].Preview != "one" {
		t.Fatalf("expected preview from first user entry, got %q", sessions[0].Preview)
	}
}

func TestSetIndexName(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("old-index")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.SetIndexName(sess.ID, "webindex-new"); err != nil {
		t.Fatalf("set index name: %v", err)
	}
	latest, ok, err := s.LatestSession()
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.IndexName != "webindex-new" {
		t.Fatalf("expected updated index name, got %q", latest.IndexName)
	}
}

func TestLoadTranscript_EmptySession(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("idx")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := s.LoadTranscript(sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(got))
	}
}
