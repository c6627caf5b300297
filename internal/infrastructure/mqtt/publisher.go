package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/infrastructure/config"
	Logger "telemetry-http-service/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// client is the part of paho.Client the publisher needs.
type client interface {
	IsConnected() bool
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher 将已接收的读数转发到MQTT主题 <prefix>/<device_id>/reading
type Publisher struct {
	client      client
	topicPrefix string
	qos         byte
	retained    bool

	// connecting is the in-flight Connect token shared by every publisher
	// waiting for the broker.
	connectMu  sync.Mutex
	connecting paho.Token
}

// NewPublisher builds a publisher with the broker settings from cfg. The
// connection is established lazily on the first publish.
func NewPublisher(cfg *config.Config) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	if strings.HasPrefix(cfg.MQTTBrokerURL, "ssl://") || strings.HasPrefix(cfg.MQTTBrokerURL, "tls://") || cfg.MQTTSSLEnabled {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		Logger.Warning("[MQTT] 连接丢失: %v", err)
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		Logger.Info("[MQTT] 成功连接到 %s", cfg.MQTTBrokerURL)
	})

	return newPublisher(paho.NewClient(opts), cfg.MQTTTopicPrefix, byte(cfg.MQTTQoS), cfg.MQTTRetained)
}

func newPublisher(c client, prefix string, qos byte, retained bool) *Publisher {
	if qos > 2 {
		qos = 0
	}
	return &Publisher{
		client:      c,
		topicPrefix: strings.TrimSuffix(prefix, "/"),
		qos:         qos,
		retained:    retained,
	}
}

func (p *Publisher) Name() string { return "mqtt" }

// Topic returns the topic readings of deviceID are published on.
func (p *Publisher) Topic(deviceID string) string {
	return p.topicPrefix + "/" + deviceID + "/reading"
}

// Publish sends reading as JSON and waits for the broker until ctx expires.
func (p *Publisher) Publish(ctx context.Context, reading *models.Reading) error {
	if err := p.ensureConnected(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	token := p.client.Publish(p.Topic(reading.DeviceID), p.qos, p.retained, payload)
	return waitToken(ctx, token)
}

// Close disconnects, giving in-flight messages 250ms.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func (p *Publisher) ensureConnected(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}

	p.connectMu.Lock()
	if p.connecting == nil {
		p.connecting = p.client.Connect()
	}
	token := p.connecting
	p.connectMu.Unlock()

	select {
	case <-token.Done():
		p.connectMu.Lock()
		if p.connecting == token {
			p.connecting = nil
		}
		p.connectMu.Unlock()
		if err := token.Error(); err != nil {
			return fmt.Errorf("MQTT客户端未连接: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("MQTT客户端未连接: %w", ctx.Err())
	}
}

func waitToken(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
