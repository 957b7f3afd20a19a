package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/paragraph"
)

const (
	// DefaultWorkers is the number of paragraphs translated concurrently.
	DefaultWorkers = 1
	// DefaultMaxAttempts bounds the calls made for one paragraph.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = time.Second
)

// ValidateFunc checks a translation before it is accepted. A non-nil error
// counts as a failed attempt.
type ValidateFunc func(index int, source, translated string) error

// DispatcherConfig 调度器配置
type DispatcherConfig struct {
	Translator  Translator
	SourceLang  string
	TargetLang  string
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	Validate    ValidateFunc
	// Cache, when set, short-circuits texts translated before. Service
	// and Model key the entries so backends sharing one file do not
	// collide.
	Cache   *Cache
	Service string
	Model   string
	Logger  logger.Logger
}

// Dispatcher translates the paragraphs of one page. Results are always
// returned in input order regardless of completion order.
type Dispatcher struct {
	tr          Translator
	src, tgt    string
	workers     int
	maxAttempts int
	delay       time.Duration
	validate    ValidateFunc
	cache       *Cache
	service     string
	model       string
	log         logger.Logger
}

// NewDispatcher creates a dispatcher, filling unset values with defaults.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		tr:          cfg.Translator,
		src:         cfg.SourceLang,
		tgt:         cfg.TargetLang,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		delay:       cfg.RetryDelay,
		validate:    cfg.Validate,
		cache:       cfg.Cache,
		service:     cfg.Service,
		model:       cfg.Model,
		log:         cfg.Logger,
	}
	if d.workers <= 0 {
		d.workers = DefaultWorkers
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = DefaultMaxAttempts
	}
	if d.delay < 0 {
		d.delay = 0
	}
	if d.log == nil {
		d.log = logger.GetLogger()
	}
	return d
}

// Workers returns the concurrency limit.
func (d *Dispatcher) Workers() int { return d.workers }

// MaxAttempts returns the per-paragraph attempt limit.
func (d *Dispatcher) MaxAttempts() int { return d.maxAttempts }

// ShouldSkip reports whether text is passed through without a backend
// call: blank paragraphs and paragraphs that are a single placeholder.
func ShouldSkip(text string) bool {
	return strings.TrimSpace(text) == "" || paragraph.IsOnlyPlaceholder(text)
}

// Dispatch translates texts and returns results aligned with the input.
// The first paragraph to exhaust its retries fails the whole call with a
// *ParagraphError; remaining work is cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))
	errs := make([]error, len(texts))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, text := range texts {
		if ShouldSkip(text) {
			results[i] = text
			continue
		}

		wg.Add(1)
		go func(idx int, text string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[idx] = &ParagraphError{Index: idx, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			out, attempts, err := d.translateOne(ctx, idx, text)
			if err != nil {
				errs[idx] = &ParagraphError{Index: idx, Attempts: attempts, Err: err}
				cancel()
				return
			}
			results[idx] = out
		}(i, text)
	}

	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}
	return results, nil
}

// firstError prefers a genuine failure over the cancellations it caused.
func firstError(errs []error) error {
	var cancelled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if cancelled == nil {
				cancelled = err
			}
			continue
		}
		return err
	}
	return cancelled
}

func (d *Dispatcher) translateOne(ctx context.Context, idx int, text string) (string, int, error) {
	var key string
	if d.cache != nil {
		key = Key(d.service, d.model, d.src, d.tgt, text)
		if out, ok := d.cache.Get(key); ok {
			return out, 0, nil
		}
	}

	attempts := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.delay), uint64(d.maxAttempts-1)),
		ctx,
	)

	op := func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", backoff.Permanent(err)
		}
		attempts++
		res, err := d.tr.Translate(ctx, []string{text}, d.src, d.tgt)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(res) != 1 {
			return "", fmt.Errorf("%w: got %d results for 1 input", ErrMalformedResponse, len(res))
		}
		if strings.TrimSpace(res[0]) == "" {
			return "", fmt.Errorf("%w: empty translation", ErrMalformedResponse)
		}
		if d.validate != nil {
			if err := d.validate(idx, text, res[0]); err != nil {
				return "", err
			}
		}
		return res[0], nil
	}

	notify := func(err error, wait time.Duration) {
		d.log.Warn("translation attempt failed, retrying",
			logger.Paragraph(idx),
			logger.Int("attempt", attempts),
			logger.String("wait", wait.String()),
			logger.Err(err))
	}

	out, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		d.log.Error("paragraph translation failed", err,
			logger.Paragraph(idx),
			logger.Int("attempts", attempts))
		return "", attempts, err
	}
	if d.cache != nil {
		d.cache.Set(key, text, out)
	}
	return out, attempts, nil
}
