package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// Event types written to the season topic.
const (
	EventRunRecorded  = "run.recorded"
	EventDayCompleted = "day.completed"
)

// DefaultTopic receives season events when none is configured.
const DefaultTopic = "runstrict.season"

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Kafka publishes a day's runs and standings as JSON events.
type Kafka struct {
	writer messageWriter
}

// NewKafka creates a synchronous writer for topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// Envelope wraps every event payload.
type Envelope struct {
	Type    string          `json:"type"`
	Day     int             `json:"day"`
	RunDate string          `json:"run_date"`
	Payload json.RawMessage `json:"payload"`
}

// RunRecorded is the payload of a run.recorded event.
type RunRecorded struct {
	RunID           string         `json:"run_id"`
	UserID          string         `json:"user_id"`
	Team            social.Team    `json:"team"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	DistanceKm      float64        `json:"distance_km"`
	DurationSeconds int            `json:"duration_seconds"`
	PaceMinPerKm    float64        `json:"pace_min_per_km"`
	CV              float64        `json:"cv"`
	Path            []world.CellID `json:"path"`
	FlipCount       int            `json:"flip_count"`
	Multiplier      int            `json:"multiplier"`
	Points          int            `json:"points"`
}

// DayCompleted is the payload of a day.completed event.
type DayCompleted struct {
	Runs       int                 `json:"runs"`
	Flips      int                 `json:"flips"`
	Points     int                 `json:"points"`
	Defectors  []string            `json:"defectors,omitempty"`
	CellCounts social.Counts       `json:"cell_counts"`
	Dominant   social.Team         `json:"dominant,omitempty"` // After the day's runs
}

// PublishDay writes one run.recorded event per run, keyed by user id, then
// a day.completed event, in a single batch.
func (k *Kafka) PublishDay(ctx context.Context, report *engine.DayReport) error {
	msgs, err := dayMessages(report)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish day %d: %w", report.Day, err)
	}
	slog.Info("day published to kafka", "day", report.Day, "messages", len(msgs))
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func dayMessages(report *engine.DayReport) ([]kafka.Message, error) {
	date := report.RunDate.Format("2006-01-02")
	msgs := make([]kafka.Message, 0, len(report.Runs)+1)

	for _, r := range report.Runs {
		value, err := encode(EventRunRecorded, report.Day, date, RunRecorded{
			RunID:           r.ID.String(),
			UserID:          string(r.UserID),
			Team:            r.TeamAtRun,
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			DistanceKm:      r.DistanceKm,
			DurationSeconds: r.DurationSeconds,
			PaceMinPerKm:    r.PaceMinPerKm,
			CV:              r.CV,
			Path:            r.Path,
			FlipCount:       r.FlipCount,
			Multiplier:      r.Multiplier,
			Points:          r.Points,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(r.UserID),
			Value:   value,
			Time:    r.EndTime,
			Headers: []kafka.Header{{Key: "event-type", Value: []byte(EventRunRecorded)}},
		})
	}

	done := DayCompleted{
		Runs:       len(report.Runs),
		Flips:      report.TotalFlips(),
		Points:     report.TotalPoints(),
		CellCounts: report.Standings.CellCounts,
		Dominant:   report.Standings.Dominant,
	}
	for _, u := range report.Defectors {
		done.Defectors = append(done.Defectors, string(u.ID))
	}
	value, err := encode(EventDayCompleted, report.Day, date, done)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, kafka.Message{
		Key:     []byte("day-" + strconv.Itoa(report.Day)),
		Value:   value,
		Time:    report.RunDate,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(EventDayCompleted)}},
	})
	return msgs, nil
}

func encode(eventType string, day int, date string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	value, err := json.Marshal(Envelope{Type: eventType, Day: day, RunDate: date, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return value, nil
}
