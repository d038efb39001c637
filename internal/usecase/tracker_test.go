package usecase_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/filesystem"
	"github.com/carbonlog/carbonlog/internal/sentinel"
	"github.com/carbonlog/carbonlog/internal/store"
	"github.com/carbonlog/carbonlog/internal/store/storetest"
	"github.com/carbonlog/carbonlog/internal/usecase"
)

type fakeAdvisor struct {
	got   advisor.Input
	reply advisor.Reply
}

func (f *fakeAdvisor) Advise(_ context.Context, in advisor.Input) (advisor.Reply, error) {
	f.got = in
	return f.reply, nil
}

func newTracker(t *testing.T, adv usecase.Advisor) *usecase.Tracker {
	t.Helper()
	dir := t.TempDir()
	log := store.NewLocked(filesystem.NewRecordLog(filepath.Join(dir, "data"), nil, nil))
	users := filesystem.NewUserDirectory(filepath.Join(dir, "users.json"), nil)
	return usecase.NewTracker(users, log, adv, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)

	user, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)
	assert.Equal(t, usecase.User{Username: "acme", Sector: "retail"}, user)

	got, err := tracker.Login(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	records, err := tracker.History(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)

	_, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)

	_, err = tracker.Register(ctx, "acme", "energy")
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	user, err := tracker.Login(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "retail", user.Sector)
}

func TestRegisterValidatesInput(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)

	_, err := tracker.Register(ctx, "", "retail")
	assert.ErrorIs(t, err, sentinel.ErrMalformedInput)

	_, err = tracker.Register(ctx, "acme", " ")
	assert.ErrorIs(t, err, sentinel.ErrMalformedInput)

	_, err = tracker.Register(ctx, "../..", "retail")
	assert.ErrorIs(t, err, sentinel.ErrMalformedInput)
}

func TestLoginUnknownIdentity(t *testing.T) {
	_, err := newTracker(t, nil).Login(context.Background(), "nobody")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendRequiresRegistration(t *testing.T) {
	err := newTracker(t, nil).Append(context.Background(), "nobody", storetest.Entry("2024-01-01", 10))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendRejectsMalformedRecord(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)
	_, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)

	err = tracker.Append(ctx, "acme", []byte(`[1,2,3]`))
	assert.ErrorIs(t, err, sentinel.ErrMalformedInput)
}

func TestDashboardUsesDateOrder(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)
	_, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)

	for _, entry := range []struct {
		date  string
		total float64
	}{
		{"2024-01-15", 130},
		{"2024-01-01", 90},
		{"2024-01-08", 100},
	} {
		require.NoError(t, tracker.Append(ctx, "acme", storetest.Entry(entry.date, entry.total)))
	}

	data, err := tracker.Dashboard(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, data.Latest)
	require.NotNil(t, data.Previous)
	assert.Equal(t, "2024-01-15", data.Latest.Date)
	assert.Equal(t, "2024-01-08", data.Previous.Date)
	assert.Len(t, data.History, 3)
	assert.Equal(t, "30", data.Deltas.TotalDelta.String())
	require.Len(t, data.Deltas.TopIncreases, 1)
	assert.Equal(t, "travel", data.Deltas.TopIncreases[0].Key)
}

func TestDashboardEmptyHistory(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, nil)
	_, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)

	data, err := tracker.Dashboard(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, data.Latest)
	assert.Nil(t, data.Previous)
	assert.Empty(t, data.History)
	assert.True(t, data.Deltas.TotalDelta.IsZero())
}

func TestAdviseUsesLatestRecord(t *testing.T) {
	ctx := context.Background()
	adv := &fakeAdvisor{reply: advisor.Reply{Text: "cut travel", Attempts: 1}}
	tracker := newTracker(t, adv)
	_, err := tracker.Register(ctx, "acme", "retail")
	require.NoError(t, err)
	require.NoError(t, tracker.Append(ctx, "acme", storetest.Entry("2024-01-08", 50)))
	require.NoError(t, tracker.Append(ctx, "acme", storetest.Entry("2024-01-01", 10)))

	reply, err := tracker.Advise(ctx, "acme", "what next?")
	require.NoError(t, err)
	assert.Equal(t, "cut travel", reply.Text)
	assert.Equal(t, "retail", adv.got.Sector)
	assert.Equal(t, "what next?", adv.got.Message)
	assert.Equal(t, "50", adv.got.Totals.Total.String())
	require.Len(t, adv.got.TopSources, 1)
	assert.Equal(t, "travel", adv.got.TopSources[0].Key)
}

func TestAdviseErrors(t *testing.T) {
	ctx := context.Background()
	tracker := newTracker(t, &fakeAdvisor{})

	_, err := tracker.Advise(ctx, "nobody", "hello")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = tracker.Advise(ctx, "nobody", "")
	assert.ErrorIs(t, err, sentinel.ErrMalformedInput)

	_, err = newTracker(t, nil).Advise(ctx, "acme", "hello")
	assert.Error(t, err)
}
