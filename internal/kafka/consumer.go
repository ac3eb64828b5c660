package kafka

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler processes one message. Returning nil commits the offset.
type Handler func(ctx context.Context, m kafka.Message) error

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader returns a consumer group reader with manual commits.
func NewReader(brokers []string, group, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Consumer fans messages out to a fixed pool of workers. All messages of a
// partition go to the same worker, so offsets are handled and committed in
// order.
type Consumer struct {
	r       Reader
	workers int
	lg      *zap.Logger

	newBackOff func() backoff.BackOff
}

// NewConsumer creates a Consumer with the given number of workers.
func NewConsumer(r Reader, workers int, lg *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, lg: lg, newBackOff: retryBackOff}
}

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run fetches until ctx is done. A failed message is retried with backoff
// until it succeeds; later messages of its partition wait behind it and
// nothing is committed past it.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer func() { _ = c.r.Close() }()

	jobs := make([]chan kafka.Message, c.workers)
	for i := range jobs {
		jobs[i] = make(chan kafka.Message)
	}
	g, gctx := errgroup.WithContext(ctx)

	for _, ch := range jobs {
		g.Go(func() error {
			for m := range ch {
				if err := c.handle(gctx, h, m); err != nil {
					// Retries stop only when gctx is done.
					return nil
				}
				if err := c.r.CommitMessages(gctx, m); err != nil && gctx.Err() == nil {
					c.lg.Error("Commit message", zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range jobs {
				close(ch)
			}
		}()
		for {
			m, err := c.r.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "fetch message")
			}
			select {
			case jobs[m.Partition%c.workers] <- m:
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return h(ctx, m)
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, next time.Duration) {
			c.lg.Error("Handle message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		},
	)
}
