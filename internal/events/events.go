package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	ReportCreated       = "report.created"
	ReportStatusChanged = "report.status_changed"
	ReportVoted         = "report.voted"
	ReportShared        = "report.shared"
	EvidenceAdded       = "evidence.added"
	EvidenceDeleted     = "evidence.deleted"
)

// Event is a domain fact emitted after a successful commit.
type Event struct {
	Type       string         `json:"type"`
	ReportID   string         `json:"reportId"`
	ActorID    string         `json:"actorId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher delivers events to downstream consumers. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is used when no
// broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"type", ev.Type,
		"report_id", ev.ReportID,
		"actor_id", ev.ActorID,
		"data", ev.Data,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
