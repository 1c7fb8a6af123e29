package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the engine's queues and appends one human-readable line
// per message to <Dir>/tickets.log and <Dir>/offers.log.
type Consumer struct {
	URL string
	Dir string
}

// NewConsumer returns a Consumer writing under dir ("logs" when empty).
func NewConsumer(url, dir string) *Consumer {
	if dir == "" {
		dir = "logs"
	}
	return &Consumer{URL: url, Dir: dir}
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff whenever the connection fails or drops.
// Messages that cannot be handled are rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("ledger-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("ledger-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("ledger-consumer: set QoS failed: %v", err)
	}

	tickets, err := c.subscribe(ch, TicketsIssuedQueue)
	if err != nil {
		return err
	}
	offers, err := c.subscribe(ch, OfferGrantedQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-tickets:
			queue = TicketsIssuedQueue
		case d, ok = <-offers:
			queue = OfferGrantedQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(queue, d.Body); err != nil {
			log.Printf("ledger-consumer: handle %s message failed: %v", queue, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// Handle decodes one message from queue and appends its line to the
// matching log file.
func (c *Consumer) Handle(queue string, body []byte) error {
	var (
		line string
		file string
	)
	switch queue {
	case TicketsIssuedQueue:
		var ev TicketsIssuedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line, file = FormatTicketsIssued(ev), "tickets.log"
	case OfferGrantedQueue:
		var ev OfferGrantedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line, file = FormatOfferGranted(ev), "offers.log"
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}
	return c.appendLine(file, line)
}

func (c *Consumer) appendLine(name, line string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatTicketsIssued renders a TicketsIssuedEvent as a single log line.
func FormatTicketsIssued(ev TicketsIssuedEvent) string {
	seats := "[]"
	if len(ev.Seats) > 0 {
		seats = "[" + strings.Join(ev.Seats, ",") + "]"
	}
	return fmt.Sprintf("[%s] Tickets issued | event_id=%s | user_id=%s | tickets=%d | total=%d cents | ref=%q | seats=%s\n",
		ev.IssuedAt, ev.EventID, ev.UserID, len(ev.TicketIDs), ev.TotalAmountCents, ev.ExternalReference, seats)
}

// FormatOfferGranted renders an OfferGrantedEvent as a single log line.
func FormatOfferGranted(ev OfferGrantedEvent) string {
	return fmt.Sprintf("[%s] Offer granted | entry_id=%s | event_id=%s | user_id=%s\n",
		ev.OfferExpiresAt, ev.EntryID, ev.EventID, ev.UserID)
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
