package producer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/Priya8975/event-inserter/internal/engine"
	"github.com/Priya8975/event-inserter/internal/metrics"
	"github.com/Priya8975/event-inserter/internal/parser"
)

// Input validation errors.
var (
	ErrNoPath    = errors.New("no file provided")
	ErrNotExist  = errors.New("file does not exist")
	ErrEmptyFile = errors.New("file is empty")
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 16 * 1024 * 1024

// Sender publishes correlated events.
type Sender interface {
	Send(ctx context.Context, event domain.Event, isLast bool) error
}

// Producer reads an input file, correlates its items and sends the resulting
// events. It runs on a single goroutine.
type Producer struct {
	correlator *engine.Correlator
	sender     Sender
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// held is the most recent event, sent once it is known whether more follow.
	held *domain.Event
}

func New(correlator *engine.Correlator, sender Sender, m *metrics.Metrics, logger *slog.Logger) *Producer {
	return &Producer{
		correlator: correlator,
		sender:     sender,
		metrics:    m,
		logger:     logger,
	}
}

// ValidateFile returns the input path from the command line arguments after
// checking that it names an existing, non-empty file.
func ValidateFile(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", ErrNoPath
	}

	path := args[0]
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return path, nil
}

// Run processes the file line by line and returns the number of events sent.
// The last event is sent with isLast set. Any returned error is fatal for the
// run.
func (p *Producer) Run(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	p.held = nil
	sent := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		p.metrics.ItemsRead.Inc()

		event, err := p.process(ctx, scanner.Text())
		if err != nil {
			return sent, err
		}
		if event == nil {
			continue
		}

		if p.held != nil {
			if err := p.send(ctx, *p.held, false); err != nil {
				return sent, err
			}
			sent++
		}
		p.held = event
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("reading %s: %w", path, err)
	}

	if p.held != nil {
		if err := p.send(ctx, *p.held, true); err != nil {
			return sent, err
		}
		sent++
		p.held = nil
	}

	p.logger.Info("input exhausted", "path", path, "events_sent", sent)
	return sent, nil
}

// process parses and correlates one line. Lines that cannot be used are
// skipped and return a nil event.
func (p *Producer) process(ctx context.Context, line string) (*domain.Event, error) {
	item, err := parser.Parse(line)
	if err != nil {
		var merr *parser.MalformedError
		switch {
		case errors.As(err, &merr):
			p.metrics.ItemsSkipped.WithLabelValues(metrics.ReasonMalformed).Inc()
			p.logger.Error("could not decode event item", "error", err)
			if merr.RecoveredID != "" {
				if p.correlator.Forget(ctx, merr.RecoveredID) {
					p.metrics.PendingEntries.Dec()
				}
			} else {
				p.logger.Debug("no id found in undecodable item")
			}
		default:
			p.metrics.ItemsSkipped.WithLabelValues(metrics.ReasonInvalid).Inc()
			p.logger.Error("event item skipped", "error", err)
		}
		return nil, nil
	}

	event, err := p.correlator.Correlate(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("correlating %s: %w", item.ID, err)
	}
	if event == nil {
		p.metrics.PendingEntries.Inc()
		return nil, nil
	}

	p.metrics.PendingEntries.Dec()
	p.metrics.EventDurationMs.Observe(float64(event.Duration))
	if event.Alert {
		p.metrics.EventsAlerted.Inc()
	}
	return event, nil
}

func (p *Producer) send(ctx context.Context, event domain.Event, isLast bool) error {
	if err := p.sender.Send(ctx, event, isLast); err != nil {
		return err
	}
	p.metrics.EventsSent.Inc()
	return nil
}
