package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/eventbus"
)

// Publisher is the subset of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge republishes bus events on NATS as JSON under <prefix>.<event>.
type Bridge struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
}

// BridgeMessage is the JSON body published for each event.
type BridgeMessage struct {
	Event   eventbus.Event `json:"event"`
	Payload any            `json:"payload"`
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, error) {
	log = log.With().Str("component", "nats").Logger()
	nc, err := nats.Connect(url,
		nats.Name("okr"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return nc, nil
}

// NewBridge creates a bridge. An empty prefix defaults to "okr".
func NewBridge(pub Publisher, prefix string, log zerolog.Logger) *Bridge {
	if prefix == "" {
		prefix = "okr"
	}
	return &Bridge{
		pub:    pub,
		prefix: prefix,
		log:    log.With().Str("component", "nats-bridge").Logger(),
	}
}

// Subject returns the subject an event is published on.
func (b *Bridge) Subject(e eventbus.Event) string {
	return b.prefix + "." + string(e)
}

// Register forwards every bus event except config reloads, which are local.
func (b *Bridge) Register(bus *eventbus.EventBus) {
	bus.SubscribeAll(func(e eventbus.Event, payload any) {
		if e == eventbus.EventConfigReloaded {
			return
		}
		if err := b.publish(e, payload); err != nil {
			b.log.Warn().Err(err).Str("event", string(e)).Msg("forward event")
		}
	})
}

func (b *Bridge) publish(e eventbus.Event, payload any) error {
	data, err := json.Marshal(BridgeMessage{Event: e, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", e, err)
	}
	if err := b.pub.Publish(b.Subject(e), data); err != nil {
		return fmt.Errorf("publish %s: %w", b.Subject(e), err)
	}
	return nil
}
