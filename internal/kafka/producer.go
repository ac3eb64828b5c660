package kafka

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer errors.
var (
	ErrBufferFull = errors.New("producer buffer full")
	ErrClosed     = errors.New("producer closed")
)

const writeTimeout = 5 * time.Second

// Writer is the subset of *kafka.Writer used by Producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a writer that keys messages to partitions by hash and
// waits for all in-sync replicas.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Producer buffers messages in memory and writes them from a single loop, so
// Publish never blocks a request.
type Producer struct {
	w     Writer
	inbox chan kafka.Message
	done  chan struct{}
	lg    *zap.Logger
}

// NewProducer creates a Producer with room for buf pending messages.
func NewProducer(w Writer, buf int, lg *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		lg:    lg,
	}
}

// Run writes buffered messages until ctx is done, then flushes what is left
// and closes the writer.
func (p *Producer) Run(ctx context.Context) error {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return p.w.Close()
		case m := <-p.inbox:
			p.write(m)
		}
	}
}

// Publish queues a message. It fails fast when the buffer is full or the
// producer has stopped.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	m := kafka.Message{Key: key, Value: value, Headers: headers, Time: time.Now()}
	select {
	case p.inbox <- m:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.lg.Error("Kafka write failed", zap.ByteString("key", m.Key), zap.Error(err))
	}
}
