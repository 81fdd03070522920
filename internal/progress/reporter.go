package progress

import (
	"fmt"
	"io"
	"sync"
)

type EventKind string

const (
	EventChannelSearch    EventKind = "channel_search"
	EventChannelFound     EventKind = "channel_found"
	EventUsersScan        EventKind = "users_scan"
	EventUsersCollected   EventKind = "users_collected"
	EventMembersScan      EventKind = "members_scan"
	EventMembersCollected EventKind = "members_collected"
	EventTargetsComputed  EventKind = "targets_computed"
	EventChunkInvite      EventKind = "chunk_invite"
	EventChunkFailed      EventKind = "chunk_failed"
	EventNothingToDo      EventKind = "nothing_to_do"
	EventDryRun           EventKind = "dry_run"
	EventDone             EventKind = "done"
	EventFatal            EventKind = "fatal"
)

// Event is one user-facing progress step of an invite run.
type Event struct {
	Kind      EventKind
	Channel   string
	ChannelID string
	Count     int
	Chunk     int
	Err       error
}

type Reporter interface {
	Report(evt Event)
}

// Console writes one human-readable line per event.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Report(evt Event) {
	line := Format(evt)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Format renders evt as a console line. Unknown kinds render empty.
func Format(evt Event) string {
	switch evt.Kind {
	case EventChannelSearch:
		return fmt.Sprintf("⏱  Looking for channel %s. Large workspaces take a while...", evt.Channel)
	case EventChannelFound:
		return fmt.Sprintf("🍾 Found channel %s with ID %s", evt.Channel, evt.ChannelID)
	case EventUsersScan:
		return "⏱  Collecting every workspace member. Large organizations take a while..."
	case EventUsersCollected:
		return fmt.Sprintf("🏁 Eligible users in workspace: %d", evt.Count)
	case EventMembersScan:
		return fmt.Sprintf("⏱  Collecting members already in %s...", evt.Channel)
	case EventMembersCollected:
		return fmt.Sprintf("🏁 Users already in %s: %d", evt.Channel, evt.Count)
	case EventTargetsComputed:
		return fmt.Sprintf("🏁 Users to invite to %s: %d", evt.Channel, evt.Count)
	case EventChunkInvite:
		return fmt.Sprintf("🎟  Inviting %d users in chunk #%d to %s...", evt.Count, evt.Chunk, evt.Channel)
	case EventChunkFailed:
		return fmt.Sprintf("🛑 Chunk #%d failed: %v", evt.Chunk, evt.Err)
	case EventNothingToDo:
		return "🏁 All users are already in the channel - nothing to do."
	case EventDryRun:
		return fmt.Sprintf("🏁 Dry run: %d users would be invited to %s in %d chunk(s)", evt.Count, evt.Channel, evt.Chunk)
	case EventDone:
		return "🏁 Done!"
	case EventFatal:
		return fmt.Sprintf("🛑 %v", evt.Err)
	}
	return ""
}

type discard struct{}

func (discard) Report(Event) {}

// Discard returns a reporter that drops every event.
func Discard() Reporter { return discard{} }

// Recorder keeps every event in memory. Tests use it to assert on output.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds lists the kinds of the recorded events in order.
func (r *Recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}
