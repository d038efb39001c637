package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/dashboard"
	"github.com/carbonlog/carbonlog/internal/identity"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/sentinel"
	"github.com/carbonlog/carbonlog/internal/store"
)

// Advisor answers a question about an identity's latest record.
type Advisor interface {
	Advise(ctx context.Context, in advisor.Input) (advisor.Reply, error)
}

// User is a registered identity.
type User struct {
	Username string `json:"username" yaml:"username"`
	Sector   string `json:"sector" yaml:"sector"`
}

// Tracker coordinates the identity directory, the record log and the advisor.
type Tracker struct {
	directory store.Directory
	log       store.Log
	advisor   Advisor
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewTracker(directory store.Directory, log store.Log, adv Advisor, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		directory: directory,
		log:       log,
		advisor:   adv,
		logger:    logger,
		tracer:    otel.Tracer("github.com/carbonlog/carbonlog/internal/usecase"),
	}
}

// Register adds a new identity and creates its empty log.
func (t *Tracker) Register(ctx context.Context, username, sector string) (_ User, err error) {
	ctx, span := t.start(ctx, "tracker.Register", username)
	defer func() { finish(span, err) }()

	if err := identity.Validate(username); err != nil {
		return User{}, err
	}
	if err := identity.ValidateSector(sector); err != nil {
		return User{}, err
	}

	exists, err := t.directory.Exists(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return User{}, fmt.Errorf("identity %q already registered: %w", username, sentinel.ErrConflict)
	}

	if err := t.directory.Put(ctx, username, sector); err != nil {
		return User{}, fmt.Errorf("register identity: %w", err)
	}
	if err := t.log.CreateLog(ctx, username); err != nil {
		return User{}, fmt.Errorf("create log: %w", err)
	}

	t.logger.Info("identity registered", "identity", username, "sector", sector)
	return User{Username: username, Sector: sector}, nil
}

// Login looks up a registered identity.
func (t *Tracker) Login(ctx context.Context, username string) (_ User, err error) {
	ctx, span := t.start(ctx, "tracker.Login", username)
	defer func() { finish(span, err) }()

	if err := identity.Validate(username); err != nil {
		return User{}, err
	}
	sector, err := t.directory.Get(ctx, username)
	if err != nil {
		return User{}, err
	}
	return User{Username: username, Sector: sector}, nil
}

// Append stores one record for a registered identity.
func (t *Tracker) Append(ctx context.Context, username string, raw []byte) (err error) {
	ctx, span := t.start(ctx, "tracker.Append", username)
	defer func() { finish(span, err) }()

	if _, err := t.registered(ctx, username); err != nil {
		return err
	}
	if err := t.log.Append(ctx, username, raw); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// History returns every record for username in append order.
func (t *Tracker) History(ctx context.Context, username string) (_ []record.Record, err error) {
	ctx, span := t.start(ctx, "tracker.History", username)
	defer func() { finish(span, err) }()

	if err := identity.Validate(username); err != nil {
		return nil, err
	}
	records, err := t.log.ReadAll(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	span.SetAttributes(attribute.Int("tracker.records", len(records)))
	return records, nil
}

// Dashboard builds the latest window and deltas for username.
// An identity with no records gets an empty dashboard.
func (t *Tracker) Dashboard(ctx context.Context, username string) (dashboard.Data, error) {
	records, err := t.History(ctx, username)
	if err != nil {
		return dashboard.Data{}, err
	}
	return dashboard.Build(records), nil
}

// Advise asks the advisor about username's latest record.
func (t *Tracker) Advise(ctx context.Context, username, message string) (_ advisor.Reply, err error) {
	ctx, span := t.start(ctx, "tracker.Advise", username)
	defer func() { finish(span, err) }()

	if strings.TrimSpace(message) == "" {
		return advisor.Reply{}, fmt.Errorf("message is required: %w", sentinel.ErrMalformedInput)
	}
	if t.advisor == nil {
		return advisor.Reply{}, errors.New("advisor is not configured")
	}

	sector, err := t.registered(ctx, username)
	if err != nil {
		return advisor.Reply{}, err
	}
	records, err := t.log.ReadAll(ctx, username)
	if err != nil {
		return advisor.Reply{}, fmt.Errorf("read records: %w", err)
	}

	data := dashboard.Build(records)
	return t.advisor.Advise(ctx, advisor.InputFor(data.Latest, sector, message))
}

func (t *Tracker) registered(ctx context.Context, username string) (string, error) {
	if err := identity.Validate(username); err != nil {
		return "", err
	}
	sector, err := t.directory.Get(ctx, username)
	if err != nil {
		return "", err
	}
	return sector, nil
}

func (t *Tracker) start(ctx context.Context, name, username string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("tracker.partition", identity.Token(username))),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
