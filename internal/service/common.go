package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func contextSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

func systemActor(assistantID string) events.Actor {
	if assistantID == "" {
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
	return events.Actor{Type: domain.SubjectTypeSystem, StaffID: &assistantID}
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func ptrBool(v bool) *bool {
	return &v
}
