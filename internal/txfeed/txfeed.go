// Package txfeed publishes new transaction log records to Kafka.
package txfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/model"
)

const retryDelay = time.Second

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// NewWriter creates a Kafka writer for a topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Gzip,
	}
}

type message struct {
	ID            string           `json:"id"`
	Time          time.Time        `json:"time"`
	Kind          string           `json:"kind"`
	Source        string           `json:"source"`
	Destination   string           `json:"destination"`
	Amount        decimal.Decimal  `json:"amount"`
	AssetID       string           `json:"assetId,omitempty"`
	AssetQuantity *decimal.Decimal `json:"assetQuantity,omitempty"`
	AssetPrice    *decimal.Decimal `json:"assetPrice,omitempty"`
}

func encode(transaction model.Transaction) (kafka.Message, error) {
	body := message{
		ID:          transaction.ID,
		Time:        transaction.Time.UTC(),
		Kind:        string(transaction.Kind),
		Source:      transaction.Source,
		Destination: transaction.Destination,
		Amount:      transaction.Amount,
	}

	if transaction.Kind.IsTrade() {
		body.AssetID = transaction.AssetID
		body.AssetQuantity = &transaction.AssetQuantity
		body.AssetPrice = &transaction.AssetPrice
	}

	data, err := json.Marshal(body)

	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode transaction %s: %w", transaction.ID, err)
	}

	return kafka.Message{Key: []byte(transaction.ID), Value: data, Time: transaction.Time}, nil
}

// Publisher sends every transaction that appears after it starts observing.
type Publisher struct {
	writer MessageWriter
	logger *slog.Logger

	mu     sync.Mutex
	known  map[string]bool
	seeded bool
	queue  []model.Transaction
	wake   chan struct{}
}

// NewPublisher creates a publisher writing to writer.
func NewPublisher(writer MessageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		logger: logger.With("component", "txfeed"),
		known:  map[string]bool{},
		wake:   make(chan struct{}, 1),
	}
}

// Observe takes a transaction log snapshot. The first snapshot only records
// what already exists. Later snapshots queue unseen records, oldest first.
//
// Observe never blocks on Kafka, so it is safe to pass to
// TransactionLog.Subscribe.
func (publisher *Publisher) Observe(transactions ledger.Transactions) {
	all := transactions.All()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	seeding := !publisher.seeded
	publisher.seeded = true
	added := 0

	for i := len(all) - 1; i >= 0; i-- {
		transaction := all[i]

		if publisher.known[transaction.ID] {
			continue
		}

		publisher.known[transaction.ID] = true

		if !seeding {
			publisher.queue = append(publisher.queue, transaction)
			added++
		}
	}

	if added > 0 {
		select {
		case publisher.wake <- struct{}{}:
		default:
		}
	}
}

func (publisher *Publisher) take() []model.Transaction {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	queue := publisher.queue
	publisher.queue = nil

	return queue
}

func (publisher *Publisher) putBack(transactions []model.Transaction) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	publisher.queue = append(transactions, publisher.queue...)
}

// Flush writes every queued record.
func (publisher *Publisher) Flush(ctx context.Context) error {
	queue := publisher.take()

	if len(queue) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(queue))

	for _, transaction := range queue {
		msg, err := encode(transaction)

		if err != nil {
			publisher.logger.Error("dropping transaction", "transaction", transaction.ID, "error", err)

			continue
		}

		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil
	}

	if err := publisher.writer.WriteMessages(ctx, messages...); err != nil {
		publisher.putBack(queue)

		return err
	}

	publisher.logger.Debug("transactions published", "count", len(messages))

	return nil
}

// Run publishes queued records until ctx is done, then closes the writer.
func (publisher *Publisher) Run(ctx context.Context) error {
	defer func() {
		if err := publisher.writer.Close(); err != nil {
			publisher.logger.Error("close kafka writer", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-publisher.wake:
		}

		for {
			err := publisher.Flush(ctx)

			if err == nil {
				break
			}

			publisher.logger.Error("publish transactions failed", "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
		}
	}
}
