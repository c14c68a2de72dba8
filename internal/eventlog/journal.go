package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/storage"
)

const prefix = "events"

type entry struct {
	*eventbus.Event
	LoggedAt time.Time `json:"logged_at"`
}

// Journal appends every committed board event to a daily NDJSON file.
type Journal struct {
	storage  storage.Storage
	eventBus *eventbus.Bus
	now      func() time.Time

	mu sync.Mutex
}

func NewJournal(eventBus *eventbus.Bus, s storage.Storage) *Journal {
	return &Journal{
		storage:  s,
		eventBus: eventBus,
		now:      time.Now,
	}
}

// Start subscribes to the event bus and blocks until ctx is cancelled.
func (j *Journal) Start(ctx context.Context) error {
	subID, ch := j.eventBus.SubscribeUnbounded()
	defer j.eventBus.Unsubscribe(subID)

	slog.Info("event journal started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("event journal stopped")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := j.Append(ctx, event); err != nil {
				slog.Error("failed to journal event", "event_id", event.ID, "type", event.Type, "error", err)
			}
		}
	}
}

func path(day time.Time) string {
	return fmt.Sprintf("%s/events_%s.ndjson", prefix, day.UTC().Format(time.DateOnly))
}

// Append adds event to the file of the UTC day it was created on.
func (j *Journal) Append(ctx context.Context, event *eventbus.Event) error {
	data, err := json.Marshal(entry{Event: event, LoggedAt: j.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	p := path(event.CreatedAt)
	existing, err := j.storage.Read(ctx, p)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cerr.WrapStorageReadError("event log", err)
	}
	buf := bytes.NewBuffer(existing)
	buf.Write(data)
	buf.WriteByte('\n')
	if err := j.storage.Write(ctx, p, buf.Bytes()); err != nil {
		return cerr.WrapStorageWriteError("event log", err)
	}
	return nil
}

// Read returns the events journaled on day, oldest first. A day without
// events yields an empty slice.
func (j *Journal) Read(ctx context.Context, day time.Time) ([]*eventbus.Event, error) {
	data, err := j.storage.Read(ctx, path(day))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []*eventbus.Event{}, nil
		}
		return nil, cerr.WrapStorageReadError("event log", err)
	}

	events := []*eventbus.Event{}
	for line := range bytes.Lines(data) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil || e.Event == nil {
			slog.WarnContext(ctx, "skipping malformed event log line", "day", day.Format(time.DateOnly), "error", err)
			continue
		}
		events = append(events, e.Event)
	}
	return events, nil
}

// ReadByType is Read filtered to one event type.
func (j *Journal) ReadByType(ctx context.Context, day time.Time, t eventbus.EventType) ([]*eventbus.Event, error) {
	all, err := j.Read(ctx, day)
	if err != nil {
		return nil, err
	}
	filtered := []*eventbus.Event{}
	for _, e := range all {
		if e.Type == t {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
