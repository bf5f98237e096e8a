// Package sendertest provides an in-memory sender.Messenger for tests.
package sendertest

import (
	"context"
	"sync"

	"github.com/m3rciful/menacebot/core/telegram/sender"
)

// Call is one recorded outbound operation.
type Call struct {
	Op     string // send, edit or copy
	ChatID int64
	Ref    sender.Ref // edited message or copy source
	Msg    sender.Message
	// Protect is set for copies.
	Protect bool
}

// Recorder records calls and fails those matched by Fail.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	next  int
	// Fail returns the error for a call, or nil to let it succeed.
	Fail func(Call) error
}

func (r *Recorder) record(c Call) (sender.Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.Fail != nil {
		if err := r.Fail(c); err != nil {
			return sender.Ref{}, err
		}
	}
	r.next++
	return sender.Ref{ChatID: c.ChatID, MessageID: 1000 + r.next}, nil
}

// Send implements sender.Messenger.
func (r *Recorder) Send(_ context.Context, chatID int64, m sender.Message) (sender.Ref, error) {
	return r.record(Call{Op: "send", ChatID: chatID, Msg: m})
}

// Edit implements sender.Messenger.
func (r *Recorder) Edit(_ context.Context, ref sender.Ref, m sender.Message) error {
	_, err := r.record(Call{Op: "edit", ChatID: ref.ChatID, Ref: ref, Msg: m})
	return err
}

// Copy implements sender.Messenger.
func (r *Recorder) Copy(_ context.Context, chatID int64, src sender.Ref, protect bool) (sender.Ref, error) {
	return r.record(Call{Op: "copy", ChatID: chatID, Ref: src, Protect: protect})
}

// Calls returns a snapshot of recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// To returns the calls addressed to chatID.
func (r *Recorder) To(chatID int64) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call, or a zero Call.
func (r *Recorder) Last() Call {
	calls := r.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
