package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Envelope is the wire format the bridge puts on Kafka. Origin identifies
// the publishing process so its own messages are skipped on the way back in.
type Envelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	Time    time.Time       `json:"time"`
}

// messageWriter is the outbound Kafka leg, satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bridge extends the local broker across processes: local publications are
// written to a Kafka topic, and publications from other storefront instances
// are fed back into the local broker as json.RawMessage payloads.
type Bridge struct {
	broker *Broker
	writer messageWriter
	reader *kafka.Reader
	origin string
	subIDs map[string]string // bus topic -> subscription id
}

// NewBridge wires the broker's topics onto a Kafka topic. The returned
// bridge relays nothing until Run is called, but local publications are
// forwarded as soon as it is constructed.
func NewBridge(broker *Broker, brokers []string, kafkaTopic, groupID string, topics ...string) *Bridge {
	b := &Bridge{
		broker: broker,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        kafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    kafkaTopic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		origin: uuid.New().String(),
		subIDs: make(map[string]string),
	}

	for _, topic := range topics {
		topic := topic
		b.subIDs[topic] = broker.Subscribe(topic, func(_ string, payload any) {
			b.forward(topic, payload)
		})
	}

	return b
}

// Origin returns the bridge's process identity.
func (b *Bridge) Origin() string {
	return b.origin
}

func (b *Bridge) forward(topic string, payload any) {
	// Remote payloads re-published locally arrive as RawMessage and are
	// not forwarded again; everything else originated here.
	if _, remote := payload.(json.RawMessage); remote {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Bus] Failed to encode payload for %s: %v", topic, err)
		return
	}

	env := Envelope{
		Origin:  b.origin,
		Topic:   topic,
		Payload: data,
		Time:    time.Now(),
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("[Bus] Failed to encode envelope for %s: %v", topic, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(topic),
		Value: value,
		Time:  env.Time,
	}); err != nil {
		log.Printf("[Bus] Failed to publish %s to Kafka: %v", topic, err)
	}
}

// Run consumes remote publications until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := b.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Bus] Error reading message: %v", err)
				continue
			}

			if err := b.handleMessage(msg.Value); err != nil {
				log.Printf("[Bus] Error handling message: %v", err)
			}
		}
	}
}

func (b *Bridge) handleMessage(value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	if env.Origin == b.origin {
		return nil
	}
	b.broker.Publish(env.Topic, env.Payload)
	return nil
}

func (b *Bridge) Close() error {
	for topic, id := range b.subIDs {
		b.broker.Unsubscribe(topic, id)
	}
	if err := b.writer.Close(); err != nil {
		return err
	}
	return b.reader.Close()
}
