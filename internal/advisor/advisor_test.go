package advisor_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/advisor/mocks"
	"github.com/carbonlog/carbonlog/internal/metrics"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/sentinel"
)

type AdvisorTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	transport *mocks.MockTransport
	metrics   *metrics.Metrics
	waits     []time.Duration
	advisor   *advisor.Advisor
}

func (s *AdvisorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.transport = mocks.NewMockTransport(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.waits = nil
	s.advisor = advisor.New(s.transport,
		advisor.Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 16 * time.Second},
		advisor.WithMetrics(s.metrics),
		advisor.WithSleep(func(_ context.Context, d time.Duration) error {
			s.waits = append(s.waits, d)
			return nil
		}),
	)
}

func (s *AdvisorTestSuite) input() advisor.Input {
	return advisor.Input{Sector: "retail", Message: "How can we cut travel?"}
}

func (s *AdvisorTestSuite) TestSuccessOnFirstAttempt() {
	s.transport.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(advisor.Response{
			Text:      "Use rail for short trips.",
			Citations: []advisor.Citation{{Title: "Rail", URI: "https://rail.example"}},
		}, nil)

	reply, err := s.advisor.Advise(context.Background(), s.input())
	s.Require().NoError(err)
	s.Equal("Use rail for short trips.", reply.Text)
	s.False(reply.Fallback)
	s.Equal(1, reply.Attempts)
	s.Len(reply.Citations, 1)
	s.Empty(s.waits)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.AdvisorAttempts))
}

func (s *AdvisorTestSuite) TestRetriesTransientFailures() {
	gomock.InOrder(
		s.transport.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(advisor.Response{}, &advisor.StatusError{Code: http.StatusTooManyRequests}),
		s.transport.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(advisor.Response{}, errors.New("connection reset")),
		s.transport.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(advisor.Response{Text: "ok"}, nil),
	)

	reply, err := s.advisor.Advise(context.Background(), s.input())
	s.Require().NoError(err)
	s.Equal("ok", reply.Text)
	s.Equal(3, reply.Attempts)
	s.NotNil(reply.Citations)
	s.Equal([]time.Duration{time.Second, 2 * time.Second}, s.waits)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.AdvisorRetries))
}

func (s *AdvisorTestSuite) TestExhaustedReturnsFallback() {
	s.transport.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(advisor.Response{}, &advisor.StatusError{Code: http.StatusServiceUnavailable}).
		Times(3)

	reply, err := s.advisor.Advise(context.Background(), s.input())
	s.Require().NoError(err)
	s.True(reply.Fallback)
	s.Equal(advisor.FallbackMessage, reply.Text)
	s.Equal(3, reply.Attempts)
	s.Len(s.waits, 2)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.AdvisorFallbacks))
}

func (s *AdvisorTestSuite) TestPermanentFailureSkipsRetries() {
	s.transport.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(advisor.Response{}, &advisor.StatusError{Code: http.StatusForbidden}).
		Times(1)

	reply, err := s.advisor.Advise(context.Background(), s.input())
	s.Require().NoError(err)
	s.True(reply.Fallback)
	s.Equal(1, reply.Attempts)
	s.Empty(s.waits)
}

func (s *AdvisorTestSuite) TestCancelledContextReturnsError() {
	ctx, cancel := context.WithCancel(context.Background())
	s.transport.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, advisor.Request) (advisor.Response, error) {
			cancel()
			return advisor.Response{}, context.Canceled
		})

	_, err := s.advisor.Advise(ctx, s.input())
	s.ErrorIs(err, context.Canceled)
}

func (s *AdvisorTestSuite) TestCancelledDuringBackoff() {
	adv := advisor.New(s.transport,
		advisor.Policy{MaxAttempts: 3, BaseDelay: time.Second},
		advisor.WithSleep(func(context.Context, time.Duration) error {
			return context.DeadlineExceeded
		}),
	)
	s.transport.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(advisor.Response{}, &advisor.StatusError{Code: http.StatusBadGateway})

	_, err := adv.Advise(context.Background(), s.input())
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *AdvisorTestSuite) TestEmptyMessageRejected() {
	_, err := s.advisor.Advise(context.Background(), advisor.Input{Sector: "retail", Message: "  "})
	s.ErrorIs(err, sentinel.ErrMalformedInput)
}

func TestAdvisorTestSuite(t *testing.T) {
	suite.Run(t, new(AdvisorTestSuite))
}

func TestInputForPicksLargestSources(t *testing.T) {
	rec, err := record.Parse([]byte(`{
		"date": "2024-03-04",
		"calculations": {
			"totals": {"total": 100, "scope1": 10, "scope2": 30, "scope3": 60},
			"scope1": {"gas": 10},
			"scope2": {"electricity": 30},
			"scope3": {"travel": 40, "waste": 10, "commuting": 10}
		}
	}`))
	require.NoError(t, err)

	in := advisor.InputFor(&rec, "retail", "help")
	assert.Equal(t, "retail", in.Sector)
	assert.True(t, in.Totals.Total.Equal(decimal.NewFromInt(100)))
	require.Len(t, in.TopSources, 3)
	assert.Equal(t, "travel", in.TopSources[0].Key)
	assert.Equal(t, "electricity", in.TopSources[1].Key)
	assert.Equal(t, "commuting", in.TopSources[2].Key)
}

func TestInputForWithoutRecord(t *testing.T) {
	in := advisor.InputFor(nil, "retail", "help")
	assert.True(t, in.Totals.Total.IsZero())
	assert.NotNil(t, in.TopSources)
	assert.Empty(t, in.TopSources)
}

func TestBuildRequestMentionsContext(t *testing.T) {
	req := advisor.BuildRequest(advisor.Input{
		Sector:     "logistics",
		Totals:     record.Totals{Total: decimal.RequireFromString("42.5")},
		TopSources: []advisor.Source{{Key: "diesel", Value: decimal.NewFromInt(30)}},
		Message:    " What should we do first? ",
	})

	assert.Contains(t, req.System, "logistics")
	assert.Contains(t, req.Prompt, "total 42.5")
	assert.Contains(t, req.Prompt, "- diesel: 30 kg")
	assert.True(t, strings.HasSuffix(req.Prompt, "Question: What should we do first?\n"))
}

func TestBuildRequestUnspecifiedSector(t *testing.T) {
	req := advisor.BuildRequest(advisor.Input{Message: "hi"})
	assert.Contains(t, req.System, "unspecified")
	assert.NotContains(t, req.Prompt, "Largest sources")
}
