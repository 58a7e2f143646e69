// Package processor runs the ingestion pipeline: a bounded queue drained
// by a single worker that applies transactions to the ledger strictly in
// submission order.
package processor

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/payments/internal/obs"
	"github.com/MarkoPoloResearchLab/payments/pkg/ledger"
)

// defaultQueueDepth bounds the number of pending transactions; a full
// queue blocks the producer until the worker catches up.
const defaultQueueDepth = 100

// ErrPipelineClosed is returned when submitting after Close, or when the
// worker loses its queue without receiving the end sentinel.
var ErrPipelineClosed = errors.New("pipeline closed")

// message is one queue slot: either a transaction or the end sentinel.
type message struct {
	end         bool
	transaction ledger.Transaction
}

// Processor owns the queue and the worker goroutine. A single producer
// submits transactions; Submit and Close must not be called concurrently
// with each other.
type Processor struct {
	queue   chan message
	result  chan error
	store   *ledger.AccountStore
	applier *ledger.Applier
	logger  *zap.Logger
	closed  atomic.Bool
}

// Option configures a Processor.
type Option func(*config)

type config struct {
	queueDepth int
	logger     *zap.Logger
}

// WithQueueDepth overrides the bounded queue capacity.
func WithQueueDepth(depth int) Option {
	return func(cfg *config) {
		if depth > 0 {
			cfg.queueDepth = depth
		}
	}
}

// WithLogger wires the logger that receives rejected-transaction events.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// New starts the worker and returns the running pipeline.
func New(store *ledger.AccountStore, applier *ledger.Applier, options ...Option) *Processor {
	cfg := config{queueDepth: defaultQueueDepth, logger: zap.NewNop()}
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}

	processor := &Processor{
		queue:   make(chan message, cfg.queueDepth),
		result:  make(chan error, 1),
		store:   store,
		applier: applier,
		logger:  cfg.logger,
	}
	go processor.run()
	return processor
}

// Submit enqueues one transaction, blocking while the queue is full.
func (processor *Processor) Submit(transaction ledger.Transaction) error {
	if processor.closed.Load() {
		return ErrPipelineClosed
	}
	processor.queue <- message{transaction: transaction}
	return nil
}

// Close sends the end sentinel and waits for the worker to drain the
// queue and exit. Once Close returns, every previously submitted
// transaction has been applied or rejected, so a snapshot taken after
// Close is complete.
func (processor *Processor) Close() error {
	if processor.closed.Swap(true) {
		return ErrPipelineClosed
	}
	processor.queue <- message{end: true}
	return <-processor.result
}

func (processor *Processor) run() {
	for msg := range processor.queue {
		obs.SetQueueDepth(len(processor.queue))
		if msg.end {
			processor.logger.Debug("end sentinel received, shutting down worker")
			processor.result <- nil
			return
		}
		processor.apply(msg.transaction)
	}
	// The queue closed without a sentinel; nothing more can arrive.
	processor.result <- ErrPipelineClosed
}

// apply routes one transaction to its account. Business-rule failures are
// logged and counted; they never stop the stream.
func (processor *Processor) apply(transaction ledger.Transaction) {
	handle := processor.store.GetOrCreate(transaction.ClientID)
	err := handle.Update(func(account *ledger.Account) error {
		return processor.applier.Apply(transaction, account)
	})
	if err != nil {
		processor.logger.Warn("transaction rejected",
			zap.Uint64("client", uint64(transaction.ClientID)),
			zap.Uint32("tx", uint32(transaction.ID)),
			zap.String("type", string(transaction.Type)),
			zap.Error(err),
		)
		obs.TransactionRejected(rejectionReason(err))
		return
	}
	obs.TransactionProcessed(string(transaction.Type))
}

// rejectionReason maps a domain error to a stable metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ledger.ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, ledger.ErrNotDisputed):
		return "not_disputed"
	default:
		return "other"
	}
}
