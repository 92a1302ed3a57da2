// Package events fans bot activity out to an external broker so other
// services can follow tickets, moderation and sessions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"prismbot/config"
)

type Type string

const (
	TicketOpened        Type = "ticket.opened"
	TicketClosed        Type = "ticket.closed"
	TicketIdle          Type = "ticket.idle"
	MemberWarned        Type = "member.warned"
	MemberFinalWarning  Type = "member.final_warning"
	ModAction           Type = "moderation.action"
	LevelUp             Type = "leveling.level_up"
	SessionStarted      Type = "session.started"
	SessionReleased     Type = "session.released"
	SessionEnded        Type = "session.ended"
	GiveawayEnded       Type = "giveaway.ended"
	ApplicationResolved Type = "application.resolved"
)

type Event struct {
	Type      Type              `json:"type"`
	GuildID   string            `json:"guild_id,omitempty"`
	ChannelID string            `json:"channel_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}

// Key is the partition/routing key: events for one user stay ordered.
func (e Event) Key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.ChannelID
}

func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return data, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Open returns the configured publisher. Broker failures at startup are
// logged and replaced by Nop.
func Open(cfg config.EventsConfig, log *slog.Logger) Publisher {
	var (
		p   Publisher
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return Nop{}
	case "amqp":
		p, err = NewAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
	case "kafka":
		p, err = NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	default:
		err = fmt.Errorf("unsupported events driver: %s (use \"none\", \"amqp\" or \"kafka\")", cfg.Driver)
	}
	if err != nil {
		log.Warn("Event publisher unavailable, events disabled", "component", "events", "driver", cfg.Driver, "err", err)
		return Nop{}
	}
	log.Info("Event publisher ready", "component", "events", "driver", cfg.Driver)
	return p
}
