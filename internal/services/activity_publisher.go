package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// PresenceActivity is one online/offline transition as published to Kafka.
type PresenceActivity struct {
	UserID    uint      `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityPublisher streams presence transitions to the analytics topic that
// feeds the monthly online-user aggregation.
type ActivityPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "social-gateway"
	return config
}

// NewActivityPublisher dials the brokers. It returns nil when no brokers are
// configured, which disables publishing.
func NewActivityPublisher(brokers []string, topic string) (*ActivityPublisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := sarama.NewSyncProducer(brokers, NewKafkaProducerConfig())
	if err != nil {
		return nil, err
	}

	return NewActivityPublisherWithProducer(producer, topic), nil
}

func NewActivityPublisherWithProducer(producer sarama.SyncProducer, topic string) *ActivityPublisher {
	return &ActivityPublisher{producer: producer, topic: topic}
}

func (p *ActivityPublisher) Publish(activity PresenceActivity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(activity.UserID), 10)),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (p *ActivityPublisher) UserOnline(_ context.Context, userID uint) {
	p.publish(userID, "online")
}

func (p *ActivityPublisher) UserOffline(_ context.Context, userID uint) {
	p.publish(userID, "offline")
}

func (p *ActivityPublisher) publish(userID uint, status string) {
	err := p.Publish(PresenceActivity{UserID: userID, Status: status, Timestamp: time.Now().UTC()})
	if err != nil {
		slog.Error("Failed to publish presence activity", "userID", userID, "status", status, "error", err)
	}
}

func (p *ActivityPublisher) Close() error {
	return p.producer.Close()
}
