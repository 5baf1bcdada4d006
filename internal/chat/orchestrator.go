package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"
)

// ErrorReplyText is the transcript entry shown when a submission fails
// anywhere between dispatch and normalization.
const ErrorReplyText = "Error: Could not fetch result. Please try again."

var ErrBusy = errors.New("a submission is already in flight")

// Boundary is everything the orchestrator needs from the surrounding
// application: a place to publish transcript snapshots, a busy signal
// for the input control, and a bearer credential read per submission.
type Boundary interface {
	PublishTranscript(transcript []Message)
	SetBusy(busy bool)
	ReadCredential() (string, bool)
}

type Requester interface {
	Post(ctx context.Context, endpoint, token string, body any) ([]byte, error)
}

type Orchestrator struct {
	requester Requester
	boundary  Boundary
	busy      atomic.Bool
	lastID    atomic.Int64
}

func NewOrchestrator(r Requester, b Boundary) *Orchestrator {
	return &Orchestrator{requester: r, boundary: b}
}

// Submit runs one full ask-cycle: optimistic user append, context
// build, dispatch, normalization, final append. Failures never escape
// as a missing transcript entry; the assistant side degrades to
// ErrorReplyText and the returned error is informational only. A
// whitespace-only utterance is a no-op, and overlapping submissions are
// rejected with ErrBusy.
func (o *Orchestrator) Submit(ctx context.Context, transcript []Message, mode Mode, index, utterance string) ([]Message, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return transcript, nil
	}
	if !o.busy.CompareAndSwap(false, true) {
		return transcript, ErrBusy
	}
	o.boundary.SetBusy(true)
	defer func() {
		o.boundary.SetBusy(false)
		o.busy.Store(false)
	}()

	history := HistoryWindow(transcript, HistoryLimit)

	user := Message{ID: o.nextID(), Role: RoleUser, Text: utterance}
	updated := make([]Message, 0, len(transcript)+2)
	updated = append(updated, transcript...)
	updated = append(updated, user)
	o.boundary.PublishTranscript(updated)

	route := Resolve(mode, utterance, index, history)
	token, _ := o.boundary.ReadCredential()

	reply := Reply{Text: ErrorReplyText}
	data, err := o.requester.Post(ctx, route.Endpoint, token, route.Body)
	if err == nil {
		var nerr error
		if reply, nerr = route.Normalize(data); nerr != nil {
			reply = Reply{Text: ErrorReplyText}
			err = nerr
		}
	}

	// The caller went away mid-request; drop the resolution instead of
	// publishing into a torn-down surface.
	if ctx.Err() != nil {
		return updated, ctx.Err()
	}

	assistant := Message{
		ID:     o.nextID(),
		Role:   RoleAssistant,
		Text:   reply.Text,
		Images: reply.Images,
		File:   reply.File,
	}
	final := append(updated, assistant)
	o.boundary.PublishTranscript(final)
	return final, err
}

// nextID hands out wall-clock nanosecond IDs, bumped past the previous
// one when the clock has not advanced between two appends.
func (o *Orchestrator) nextID() int64 {
	for {
		id := time.Now().UnixNano()
		last := o.lastID.Load()
		if id <= last {
			id = last + 1
		}
		if o.lastID.CompareAndSwap(last, id) {
			return id
		}
	}
}
