// Package events broadcasts word-list changes over NATS so open pages and
// watchers can re-highlight without polling the store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/nats-io/nats.go"
)

// DefaultSubject carries full word lists keyed by word id.
const DefaultSubject = "lexilight.words.updated"

// Conn is the part of *nats.Conn used here.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Connect dials a NATS server with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Publisher sends word lists.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher returns a Publisher on subject, or DefaultSubject if empty.
func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// PublishWords sends the whole list. NATS publishes do not block on the
// network, so ctx is only checked up front.
func (p *Publisher) PublishWords(ctx context.Context, words highlight.WordList) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	if words == nil {
		words = highlight.WordList{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encode word list: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Subscriber hands every decoded word list to a callback.
type Subscriber struct {
	OnWords func(highlight.WordList)
	// Logger reports undecodable messages. nil means no logging.
	Logger *log.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewSubscriber returns a Subscriber calling fn for each list received.
func NewSubscriber(fn func(highlight.WordList)) *Subscriber {
	return &Subscriber{OnWords: fn}
}

// Start subscribes on subject, or DefaultSubject if empty.
func (s *Subscriber) Start(conn Conn, subject string) error {
	if subject == "" {
		subject = DefaultSubject
	}
	sub, err := conn.Subscribe(subject, s.HandleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// HandleMsg decodes one message. Malformed payloads are dropped; entries
// without word text are dropped by the decoder.
func (s *Subscriber) HandleMsg(msg *nats.Msg) {
	words, err := highlight.DecodeWordList(msg.Data)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("events: dropping message on %s: %v", msg.Subject, err)
		}
		return
	}
	if s.OnWords != nil {
		s.OnWords(words)
	}
}

// Stop unsubscribes.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.sub = nil
	return err
}
