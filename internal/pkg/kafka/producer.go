package kafka

import (
	"github.com/Shopify/sarama"
)

type Message struct {
	Key   []byte
	Value []byte
}

type Producer interface {
	Push(messages []Message) error
	Close() error
}

type producer struct {
	topic string
	conn  sarama.SyncProducer
}

func NewProducer(brokers []string, topic string) (Producer, error) {
	saramaConf := sarama.NewConfig()
	saramaConf.Producer.Return.Successes = true
	saramaConf.Producer.Return.Errors = true
	saramaConf.Producer.RequiredAcks = sarama.WaitForAll
	saramaConf.Producer.Idempotent = true
	saramaConf.Net.MaxOpenRequests = 1
	saramaConf.Version = sarama.V2_1_0_0

	client, err := sarama.NewClient(brokers, saramaConf)
	if err != nil {
		return nil, err
	}

	conn, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewFromSyncProducer(conn, topic), nil
}

// NewFromSyncProducer wraps an existing sarama producer.
func NewFromSyncProducer(conn sarama.SyncProducer, topic string) Producer {
	return &producer{conn: conn, topic: topic}
}

func (p *producer) Push(messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	return p.conn.SendMessages(toKafkaMessages(messages, p.topic))
}

func (p *producer) Close() error {
	return p.conn.Close()
}

func toKafkaMessages(messages []Message, topic string) []*sarama.ProducerMessage {
	res := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, message := range messages {
		msg := &sarama.ProducerMessage{
			Topic: topic,
			Value: sarama.ByteEncoder(message.Value),
		}
		if len(message.Key) > 0 {
			msg.Key = sarama.ByteEncoder(message.Key)
		}
		res = append(res, msg)
	}
	return res
}
