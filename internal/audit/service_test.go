package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	err        error
	lastWindow Window
}

func (s *stubTimelineRepo) Timeline(_ context.Context, window Window) ([]TimelineRow, error) {
	s.lastWindow = window
	if s.err != nil {
		return nil, s.err
	}
	if window.Limit < len(s.rows) {
		return s.rows[:window.Limit], nil
	}
	return s.rows, nil
}

func mockRow(id int64, ts, actor, action, entityID string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{ID: id, At: at, Actor: actor, Action: action, Entity: "user", EntityID: entityID}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		mockRow(3, "2024-03-10T10:00:00Z", "1", "assignment.update", "3"),
		mockRow(2, "2024-03-09T09:00:00Z", "1", "session.login", "1"),
		mockRow(1, "2024-03-08T08:00:00Z", "4", "session.login", "4"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 3, repo.lastWindow.Limit)
	assert.Equal(t, 0, repo.lastWindow.Offset)
}

func TestServiceTimelineClampsPaging(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.lastWindow.Limit)
	assert.Equal(t, 2*maxPageSize, repo.lastWindow.Offset)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.False(t, result.Paging.HasNext)
	assert.NotNil(t, result.Rows)

	_, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize+1, repo.lastWindow.Limit)
}

func TestServiceExportUsesLimit(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{mockRow(1, "2024-03-08T08:00:00Z", "", "session.login", "4")}}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{Actor: "1"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, ExportLimit, repo.lastWindow.Limit)
	assert.Equal(t, "1", repo.lastWindow.Filters.Actor)
}

func TestServicePropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&stubTimelineRepo{err: boom})
	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, boom)

	_, err = NewService(nil).Export(context.Background(), TimelineFilters{})
	assert.Error(t, err)
}

func TestTimelineConditions(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	where, args := timelineConditions(TimelineFilters{From: from, To: to, Entity: "user", Action: "assignment.update"})

	assert.Equal(t, []string{"occurred_at >= $1", "occurred_at < $2", "entity = $3", "action = $4"}, where)
	assert.Equal(t, []any{from, to.Add(24 * time.Hour), "user", "assignment.update"}, args)

	where, args = timelineConditions(TimelineFilters{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestWriteCSV(t *testing.T) {
	row := mockRow(7, "2024-03-10T10:00:00Z", "1", "assignment.update", "3")
	row.Meta = map[string]any{"to_role": "team_lead"}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []TimelineRow{row}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"7", "2024-03-10T10:00:00Z", "1", "assignment.update", "user", "3", `{"to_role":"team_lead"}`}, records[1])
}

func TestWritePDF(t *testing.T) {
	rows := []TimelineRow{mockRow(1, "2024-03-10T10:00:00Z", "1", "assignment.update", "3")}
	rows[0].Meta = map[string]any{"to_role": "team_lead", "from_role": "associate"}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, TimelineFilters{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, rows))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestMetaSummaryIsSorted(t *testing.T) {
	assert.Equal(t, "a=1, b=two", metaSummary(map[string]any{"b": "two", "a": 1}))
	assert.Empty(t, metaSummary(nil))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
