package mail

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultQueueSize   = 128
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
	defaultSendTimeout = 10 * time.Second
)

type queueJob struct {
	to   string
	code string
}

// Queue sends emails asynchronously through a Sender. A job that keeps
// failing is retried a bounded number of times and then dropped with a log
// entry; delivery is fire-and-forget from the caller's point of view.
type Queue struct {
	sender      Sender
	logger      zerolog.Logger
	jobs        chan queueJob
	wg          sync.WaitGroup
	closeOnce   sync.Once
	maxAttempts int
	retryDelay  time.Duration
	sendTimeout time.Duration
}

// QueueOption defines a function type to modify the Queue instance.
type QueueOption func(*Queue)

// WithRetryPolicy overrides the attempt bound and the delay between attempts.
func WithRetryPolicy(maxAttempts int, retryDelay time.Duration) QueueOption {
	return func(q *Queue) {
		q.maxAttempts = maxAttempts
		q.retryDelay = retryDelay
	}
}

// WithSendTimeout overrides the per-attempt delivery timeout.
func WithSendTimeout(timeout time.Duration) QueueOption {
	return func(q *Queue) {
		q.sendTimeout = timeout
	}
}

// WithQueueLogger sets the structured logger.
func WithQueueLogger(logger zerolog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// NewQueue starts the delivery worker and returns the queue. Call Close to
// drain it on shutdown.
func NewQueue(sender Sender, options ...QueueOption) *Queue {
	q := &Queue{
		sender:      sender,
		logger:      zerolog.Nop(),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range options {
		opt(q)
	}

	q.jobs = make(chan queueJob, defaultQueueSize)
	q.wg.Add(1)
	go q.run()

	return q
}

// SendForgotPasswordEmail enqueues a delivery. It never blocks: a full queue
// is an error rather than backpressure on the request path.
func (q *Queue) SendForgotPasswordEmail(_ context.Context, to, code string) error {
	select {
	case q.jobs <- queueJob{to: to, code: code}:
		return nil
	default:
		return errors.New("[Queue.SendForgotPasswordEmail] queue full")
	}
}

// Close stops accepting jobs and waits for queued deliveries to finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.deliver(job)
	}
}

func (q *Queue) deliver(job queueJob) {
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), q.sendTimeout)
		err := q.sender.SendForgotPasswordEmail(ctx, job.to, job.code)
		cancel()
		if err == nil {
			return
		}

		q.logger.Warn().Err(err).Int("attempt", attempt).Msg("email delivery attempt failed")
		if attempt < q.maxAttempts {
			time.Sleep(q.retryDelay)
		}
	}

	q.logger.Error().Int("attempts", q.maxAttempts).Msg("email delivery abandoned")
}
