package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActivityPublisherWithoutBrokers(t *testing.T) {
	publisher, err := NewActivityPublisher(nil, "presence-activity")
	require.NoError(t, err)
	assert.Nil(t, publisher)
}

func TestPublishPresenceTransitions(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaProducerConfig())
	publisher := NewActivityPublisherWithProducer(producer, "presence-activity")

	expectStatus := func(status string) mocks.ValueChecker {
		return func(val []byte) error {
			var activity PresenceActivity
			if err := json.Unmarshal(val, &activity); err != nil {
				return err
			}
			if activity.UserID != 42 || activity.Status != status {
				return errors.New("unexpected activity " + string(val))
			}
			return nil
		}
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(expectStatus("online"))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(expectStatus("offline"))

	publisher.UserOnline(context.Background(), 42)
	publisher.UserOffline(context.Background(), 42)

	require.NoError(t, publisher.Close())
}

func TestPublishReturnsProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaProducerConfig())
	publisher := NewActivityPublisherWithProducer(producer, "presence-activity")

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := publisher.Publish(PresenceActivity{UserID: 1, Status: "online"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, publisher.Close())
}
