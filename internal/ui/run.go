package ui

import (
	"fmt"
	"sync/atomic"

	"ragchat/internal/api"
	"ragchat/internal/auth"
	"ragchat/internal/chat"
	"ragchat/internal/config"
	"ragchat/internal/export"
	"ragchat/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// programBoundary bridges the orchestrator's callbacks into Bubble Tea
// messages. The program pointer is attached after construction because
// the program needs the model, which needs the orchestrator, which
// needs the boundary.
type programBoundary struct {
	program atomic.Pointer[tea.Program]
	tokens  *auth.Store
}

func (b *programBoundary) PublishTranscript(transcript []chat.Message) {
	if p := b.program.Load(); p != nil {
		p.Send(transcriptMsg{transcript: transcript})
	}
}

func (b *programBoundary) SetBusy(busy bool) {
	if p := b.program.Load(); p != nil {
		p.Send(busyMsg{busy: busy})
	}
}

func (b *programBoundary) ReadCredential() (string, bool) {
	if b.tokens == nil {
		return "", false
	}
	return b.tokens.Read()
}

// Run wires the client, token store and session store into the TUI and
// blocks until the user quits.
func Run(cfg config.AppConfig, client *api.Client, tokens *auth.Store, st *store.Store, session store.Session, transcript []chat.Message) error {
	boundary := &programBoundary{tokens: tokens}
	orch := chat.NewOrchestrator(client, boundary)
	saver := export.New(cfg.DownloadDir, cfg.ExportDir)

	m := NewModel(cfg, orch, st, saver, session, transcript)
	p := tea.NewProgram(m, tea.WithAltScreen())
	boundary.program.Store(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
