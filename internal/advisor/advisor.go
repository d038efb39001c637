// Package advisor asks a generative provider for emission-reduction advice
// about an identity's latest record.
//
// Transient provider failures are retried with exponential backoff up to a
// fixed number of attempts. When the budget runs out, or the provider fails in
// a way retrying cannot fix, Advise answers with FallbackMessage instead of an
// error. Only context cancellation and invalid input surface as errors.
package advisor

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carbonlog/carbonlog/internal/metrics"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/sentinel"
)

// FallbackMessage is returned when the provider cannot be reached.
const FallbackMessage = "I'm having trouble connecting to the advisor right now. Please try again in a few moments."

// TopSourceCount is how many of the largest emission sources go into the prompt.
const TopSourceCount = 3

// Source is one emission source and its current value.
type Source struct {
	Key   string
	Value decimal.Decimal
}

// Input is everything the advisor needs for one question.
type Input struct {
	Sector     string
	Totals     record.Totals
	TopSources []Source
	Message    string
}

// Reply is the advisor's answer. Fallback is set when Text is FallbackMessage.
type Reply struct {
	Text      string
	Citations []Citation
	Fallback  bool
	Attempts  int
}

// InputFor builds an Input from the latest record. A nil record yields zero totals.
func InputFor(latest *record.Record, sector, message string) Input {
	in := Input{Sector: sector, Message: message, TopSources: []Source{}}
	if latest == nil {
		return in
	}
	in.Totals = latest.Totals
	in.TopSources = TopSources(latest.Sources(), TopSourceCount)
	return in
}

// TopSources returns the n largest sources, ties ordered by key.
func TopSources(sources map[string]decimal.Decimal, n int) []Source {
	out := make([]Source, 0, len(sources))
	for key, value := range sources {
		out = append(out, Source{Key: key, Value: value})
	}
	slices.SortFunc(out, func(a, b Source) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// BuildRequest renders the system instruction and prompt for in.
func BuildRequest(in Input) Request {
	sector := in.Sector
	if sector == "" {
		sector = "unspecified"
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Sector: %s\n", sector)
	fmt.Fprintf(&prompt, "Latest weekly emissions (kg CO2e): total %s, scope 1 %s, scope 2 %s, scope 3 %s\n",
		in.Totals.Total.String(), in.Totals.Scope1.String(), in.Totals.Scope2.String(), in.Totals.Scope3.String())
	if len(in.TopSources) > 0 {
		prompt.WriteString("Largest sources:\n")
		for _, s := range in.TopSources {
			fmt.Fprintf(&prompt, "- %s: %s kg\n", s.Key, s.Value.String())
		}
	}
	fmt.Fprintf(&prompt, "\nQuestion: %s\n", strings.TrimSpace(in.Message))

	return Request{
		System: fmt.Sprintf("You are a carbon reduction advisor for organisations in the %s sector. "+
			"Give short, practical suggestions grounded in the emissions data provided and cite sources where possible.", sector),
		Prompt: prompt.String(),
	}
}

// Advisor runs requests through a Transport under a retry Policy.
type Advisor struct {
	transport Transport
	policy    Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
	tracer    trace.Tracer
}

// Option configures an Advisor.
type Option func(*Advisor)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Advisor) {
		a.metrics = m
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Advisor) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

func New(transport Transport, policy Policy, opts ...Option) *Advisor {
	a := &Advisor{
		transport: transport,
		policy:    policy,
		logger:    slog.New(slog.DiscardHandler),
		sleep:     sleepContext,
		tracer:    otel.Tracer("github.com/carbonlog/carbonlog/internal/advisor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Advise asks the provider about in.
func (a *Advisor) Advise(ctx context.Context, in Input) (Reply, error) {
	if strings.TrimSpace(in.Message) == "" {
		return Reply{}, fmt.Errorf("message is required: %w", sentinel.ErrMalformedInput)
	}

	ctx, span := a.tracer.Start(ctx, "advisor.Advise",
		trace.WithAttributes(attribute.String("advisor.sector", in.Sector)),
	)
	defer span.End()

	req := BuildRequest(in)
	retry := NewRetry(a.policy)
	for {
		a.metrics.IncrementAdvisorAttempt()
		resp, err := a.transport.Generate(ctx, req)
		if err != nil && ctx.Err() != nil {
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context cancelled")
			return Reply{}, ctx.Err()
		}

		step := retry.Next(Classify(err))
		span.SetAttributes(attribute.Int("advisor.attempts", retry.Attempts()))

		switch step.State {
		case Succeeded:
			citations := resp.Citations
			if citations == nil {
				citations = []Citation{}
			}
			return Reply{Text: resp.Text, Citations: citations, Attempts: retry.Attempts()}, nil
		case Retrying:
			a.metrics.IncrementAdvisorRetry()
			a.logger.Warn("advisor request failed, retrying",
				"attempt", retry.Attempts(), "wait", step.Wait, "error", err)
			if err := a.sleep(ctx, step.Wait); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "context cancelled")
				return Reply{}, err
			}
		default:
			a.metrics.IncrementAdvisorFallback()
			a.logger.Error("advisor unavailable, using fallback",
				"attempts", retry.Attempts(), "state", step.State.String(), "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, step.State.String())
			return Reply{Text: FallbackMessage, Citations: []Citation{}, Fallback: true, Attempts: retry.Attempts()}, nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
