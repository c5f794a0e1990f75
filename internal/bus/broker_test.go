package bus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Broker Tests
// ============================================

func TestBroker_PublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker()

	var first, second []any
	b.Subscribe(TopicCartUpdated, func(_ string, payload any) { first = append(first, payload) })
	b.Subscribe(TopicCartUpdated, func(_ string, payload any) { second = append(second, payload) })

	b.Publish(TopicCartUpdated, "hello")

	assert.Equal(t, []any{"hello"}, first)
	assert.Equal(t, []any{"hello"}, second)
}

func TestBroker_TopicsAreIndependent(t *testing.T) {
	b := NewBroker()

	var got []string
	b.Subscribe("other:topic", func(topic string, _ any) { got = append(got, topic) })

	b.Publish(TopicCartUpdated, 1)
	b.Publish("other:topic", 2)

	assert.Equal(t, []string{"other:topic"}, got)
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()

	var count int
	id := b.Subscribe(TopicCartUpdated, func(string, any) { count++ })

	b.Publish(TopicCartUpdated, nil)
	b.Unsubscribe(TopicCartUpdated, id)
	b.Publish(TopicCartUpdated, nil)

	assert.Equal(t, 1, count)
}

func TestBroker_PublishWithoutSubscribersIsANoop(t *testing.T) {
	b := NewBroker()
	b.Publish(TopicCartUpdated, "nobody home")
}

func TestBroker_HandlerMayUnsubscribeItself(t *testing.T) {
	b := NewBroker()

	var count int
	var id string
	id = b.Subscribe(TopicCartUpdated, func(string, any) {
		count++
		b.Unsubscribe(TopicCartUpdated, id)
	})

	b.Publish(TopicCartUpdated, nil)
	b.Publish(TopicCartUpdated, nil)

	assert.Equal(t, 1, count)
}

// ============================================
// Bridge Tests
// ============================================

// fakeWriter records the messages the bridge would produce to Kafka.
type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestBridge(b *Broker, origin string, writer messageWriter, topics ...string) *Bridge {
	bridge := &Bridge{
		broker: b,
		writer: writer,
		origin: origin,
		subIDs: make(map[string]string),
	}
	for _, topic := range topics {
		topic := topic
		bridge.subIDs[topic] = b.Subscribe(topic, func(_ string, payload any) {
			bridge.forward(topic, payload)
		})
	}
	return bridge
}

func TestBridge_HandleMessage_SkipsOwnOrigin(t *testing.T) {
	b := NewBroker()
	bridge := newTestBridge(b, "origin-self", nil)

	var got []any
	b.Subscribe(TopicCartUpdated, func(_ string, payload any) { got = append(got, payload) })

	env, err := json.Marshal(Envelope{
		Origin:  "origin-self",
		Topic:   TopicCartUpdated,
		Payload: json.RawMessage(`{"n":1}`),
	})
	require.NoError(t, err)

	require.NoError(t, bridge.handleMessage(env))
	assert.Empty(t, got)
}

func TestBridge_HandleMessage_RepublishesRemotePayloads(t *testing.T) {
	b := NewBroker()
	bridge := newTestBridge(b, "origin-self", nil)

	var got []any
	b.Subscribe(TopicCartUpdated, func(_ string, payload any) { got = append(got, payload) })

	env, err := json.Marshal(Envelope{
		Origin:  "origin-remote",
		Topic:   TopicCartUpdated,
		Payload: json.RawMessage(`{"n":2}`),
	})
	require.NoError(t, err)

	require.NoError(t, bridge.handleMessage(env))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"n":2}`, string(got[0].(json.RawMessage)))
}

func TestBridge_HandleMessage_RejectsGarbage(t *testing.T) {
	bridge := newTestBridge(NewBroker(), "origin-self", nil)
	assert.Error(t, bridge.handleMessage([]byte("not json")))
}

// forward must drop remote payloads before touching the writer, otherwise
// two bridged instances would ping-pong every broadcast forever.
func TestBridge_Forward_SkipsRemotePayloads(t *testing.T) {
	writer := &fakeWriter{}
	b := NewBroker()
	newTestBridge(b, "origin-self", writer, TopicCartUpdated)

	b.Publish(TopicCartUpdated, json.RawMessage(`{"n":3}`))

	assert.Empty(t, writer.msgs)
}

func TestBridge_Forward_ProducesLocalPublications(t *testing.T) {
	writer := &fakeWriter{}
	b := NewBroker()
	newTestBridge(b, "origin-self", writer, TopicCartUpdated)

	b.Publish(TopicCartUpdated, map[string]int{"total_items": 4})

	require.Len(t, writer.msgs, 1)
	assert.Equal(t, []byte(TopicCartUpdated), writer.msgs[0].Key)

	var env Envelope
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &env))
	assert.Equal(t, "origin-self", env.Origin)
	assert.Equal(t, TopicCartUpdated, env.Topic)
	assert.JSONEq(t, `{"total_items":4}`, string(env.Payload))
}

// Two bridged instances: a publication on one broker comes out of the
// other, and never echoes back to its own writer.
func TestBridge_RelaysAcrossInstances(t *testing.T) {
	writerA := &fakeWriter{}
	brokerA := NewBroker()
	newTestBridge(brokerA, "origin-a", writerA, TopicCartUpdated)

	writerB := &fakeWriter{}
	brokerB := NewBroker()
	bridgeB := newTestBridge(brokerB, "origin-b", writerB, TopicCartUpdated)

	var got []any
	brokerB.Subscribe(TopicCartUpdated, func(_ string, payload any) { got = append(got, payload) })

	brokerA.Publish(TopicCartUpdated, map[string]int{"total_items": 7})
	require.Len(t, writerA.msgs, 1)

	require.NoError(t, bridgeB.handleMessage(writerA.msgs[0].Value))

	require.Len(t, got, 1)
	assert.JSONEq(t, `{"total_items":7}`, string(got[0].(json.RawMessage)))
	assert.Empty(t, writerB.msgs)
}
