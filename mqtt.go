package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const mqttPublishTimeout = 5 * time.Second

// mqttClient paho 客戶端中實際用到的部分
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// StatePayload 發布到 MQTT 的狀態訊息
type StatePayload struct {
	Timestamp    int64             `json:"ts"`
	SlaveAddress uint8             `json:"slave_address"`
	Values       map[string]any    `json:"values"`
	Units        map[string]string `json:"units,omitempty"`
	Unavailable  []string          `json:"unavailable,omitempty"`
}

// NewStatePayload 由 Snapshot 建立訊息，失敗欄位的值為 null
func NewStatePayload(snap *Snapshot) StatePayload {
	p := StatePayload{
		Timestamp:    snap.Time.Unix(),
		SlaveAddress: snap.SlaveID,
		Values:       make(map[string]any, snap.Len()),
		Units:        make(map[string]string),
	}

	for _, f := range snap.Fields {
		name := f.Descriptor.Name
		if !f.OK() {
			p.Values[name] = nil
			p.Unavailable = append(p.Unavailable, name)
			continue
		}
		p.Values[name] = f.Value.Interface()
		if f.Descriptor.Unit != "" {
			p.Units[name] = f.Descriptor.Unit
		}
	}

	return p
}

// MQTTPublisher 每輪發布一則狀態訊息
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
	qos         byte
	retain      bool
	logger      *zap.Logger
}

// NewMQTTPublisher 連線到 broker
func NewMQTTPublisher(cfg MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetPingTimeout(3 * time.Second).
		SetAutoReconnect(true).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	t := client.Connect()
	if ok := t.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("連線 MQTT broker %s 逾時", cfg.BrokerURL)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("連線 MQTT broker %s 失敗: %w", cfg.BrokerURL, err)
	}

	logger.Info("MQTT 已連線",
		zap.String("broker", cfg.BrokerURL),
		zap.String("client_id", cfg.ClientID),
	)

	return newMQTTPublisher(client, cfg, logger), nil
}

func newMQTTPublisher(client mqttClient, cfg MQTTConfig, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		qos:         cfg.QoS,
		retain:      cfg.Retain,
		logger:      logger,
	}
}

// StateTopic 狀態主題，例如 renogybms/247/state
func (p *MQTTPublisher) StateTopic(slaveID uint8) string {
	return fmt.Sprintf("%s/%d/state", p.topicPrefix, slaveID)
}

// Consume 實作 SnapshotSink
func (p *MQTTPublisher) Consume(_ context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(NewStatePayload(snap))
	if err != nil {
		return fmt.Errorf("序列化狀態失敗: %w", err)
	}

	topic := p.StateTopic(snap.SlaveID)
	t := p.client.Publish(topic, p.qos, p.retain, payload)
	if !t.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("發布 %s 逾時", topic)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("發布 %s 失敗: %w", topic, err)
	}

	p.logger.Debug("已發布狀態", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

// Close 中斷連線
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
