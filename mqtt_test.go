package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeToken 立即完成的 mqtt.Token
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	messages     []published
	err          error
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeMQTTClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTTPublisher_Consume(t *testing.T) {
	client := &fakeMQTTClient{}
	cfg := DefaultConfig().MQTT
	cfg.QoS = 1
	cfg.Retain = true

	p := newMQTTPublisher(client, cfg, zap.NewNop())
	snap := testSnapshot(t)

	require.NoError(t, p.Consume(context.Background(), snap))
	require.Len(t, client.messages, 1)

	msg := client.messages[0]
	assert.Equal(t, "renogybms/247/state", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var payload StatePayload
	require.NoError(t, json.Unmarshal(msg.payload, &payload))
	assert.Equal(t, uint8(0xF7), payload.SlaveAddress)
	assert.Equal(t, snap.Time.Unix(), payload.Timestamp)
	assert.InDelta(t, 13.3, payload.Values["voltage"], 1e-9)
	assert.Equal(t, float64(12), payload.Values["cycle_number"])
	assert.Nil(t, payload.Values["current"])
	assert.Equal(t, []string{"current"}, payload.Unavailable)
	assert.Equal(t, "V", payload.Units["voltage"])

	p.Close()
	assert.True(t, client.disconnected)
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, DefaultConfig().MQTT, zap.NewNop())

	err := p.Consume(context.Background(), testSnapshot(t))
	assert.Error(t, err)
}

func TestMQTTPublisher_StateTopic(t *testing.T) {
	cfg := DefaultConfig().MQTT
	cfg.TopicPrefix = "home/battery"
	p := newMQTTPublisher(&fakeMQTTClient{}, cfg, zap.NewNop())

	assert.Equal(t, "home/battery/1/state", p.StateTopic(1))
}
