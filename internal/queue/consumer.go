package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// Rescanner is the part of scheduler.Service the worker drives.
type Rescanner interface {
	RescanLarp(ctx context.Context, larpID uint64) (scheduler.RescanReport, error)
	RescanAll(ctx context.Context) ([]scheduler.RescanReport, error)
}

// AfterRescan runs after every completed re-scan, e.g. to drop cached
// responses of the LARP.
type AfterRescan func(ctx context.Context, rep scheduler.RescanReport)

// Consumer listens to the conflict and re-scan queues.  Conflicts are
// appended to the audit log, re-scan requests are executed against the
// Rescanner.
type Consumer struct {
	cfg   config.QueueConfig
	svc   Rescanner
	after AfterRescan
}

// NewConsumer builds a Consumer.  after may be nil.
func NewConsumer(cfg config.QueueConfig, svc Rescanner, after AfterRescan) *Consumer {
	return &Consumer{cfg: cfg, svc: svc, after: after}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			log.Printf("planning-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("planning-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("planning-consumer: set QoS failed: %v", err)
	}

	consume := func(queue string) (<-chan amqp.Delivery, error) {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("queue consume %s: %w", queue, err)
		}
		return msgs, nil
	}
	conflicts, err := consume(c.cfg.ConflictQueue)
	if err != nil {
		return err
	}
	rescans, err := consume(c.cfg.RescanQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-conflicts:
			if ok {
				err = c.HandleConflict(d.Body)
			}
		case d, ok = <-rescans:
			if ok {
				err = c.HandleRescan(ctx, d.Body)
			}
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err != nil {
			log.Printf("planning-consumer: handle message %s failed: %v", d.MessageId, err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

// HandleConflict appends one audit line for a ConflictDetectedEvent.
func (c *Consumer) HandleConflict(body []byte) error {
	var ev ConflictDetectedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.AuditLog), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.cfg.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatConflictLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// HandleRescan runs a RescanRequested job.  A zero larp id is rejected.
func (c *Consumer) HandleRescan(ctx context.Context, body []byte) error {
	var req RescanRequested
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if req.LarpID == 0 {
		return errors.New("rescan request without larp_id")
	}
	rep, err := c.svc.RescanLarp(ctx, req.LarpID)
	if err != nil {
		return fmt.Errorf("rescan larp %d: %w", req.LarpID, err)
	}
	if c.after != nil {
		c.after(ctx, rep)
	}
	return nil
}

// FormatConflictLine renders ev as a single newline-terminated log line.
func FormatConflictLine(ev ConflictDetectedEvent) string {
	ids := make([]string, len(ev.EventIDs))
	for i, id := range ev.EventIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Conflict detected | conflict_id=%d | larp_id=%d | type=%s | severity=%s | events=[%s]",
		ev.DetectedAt, ev.ConflictID, ev.LarpID, ev.Type, ev.Severity, strings.Join(ids, ","))
	if ev.ResourceID != nil {
		fmt.Fprintf(&b, " | resource_id=%d", *ev.ResourceID)
	}
	if ev.LocationID != nil {
		fmt.Fprintf(&b, " | location_id=%d", *ev.LocationID)
	}
	fmt.Fprintf(&b, " | detail=%q\n", ev.Detail)
	return b.String()
}
