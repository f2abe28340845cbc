package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/realtime"
	"github.com/nagaralert/alerthub/internal/storage"
	"github.com/nagaralert/alerthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []realtime.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memoryStore struct {
	puts    map[string][]byte
	deleted []string
}

func (m *memoryStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[name] = data
	return "https://cdn.example.com/" + name, nil
}

func (m *memoryStore) Delete(_ context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestPlanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Status
		to      models.Status
		noop    bool
		invalid bool
	}{
		{"verify pending", models.StatusPending, models.StatusVerified, false, false},
		{"reject pending", models.StatusPending, models.StatusRejected, false, false},
		{"resolve verified", models.StatusVerified, models.StatusResolved, false, false},
		{"re-verify is a no-op", models.StatusVerified, models.StatusVerified, true, false},
		{"resolve pending", models.StatusPending, models.StatusResolved, false, true},
		{"reject verified", models.StatusVerified, models.StatusRejected, false, true},
		{"verify rejected", models.StatusRejected, models.StatusVerified, false, true},
		{"resolve resolved", models.StatusResolved, models.StatusResolved, false, true},
		{"reject rejected", models.StatusRejected, models.StatusRejected, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noop, err := planTransition(tt.from, tt.to)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.noop, noop)
		})
	}
}

func TestResolveVote(t *testing.T) {
	up := &models.Vote{VoteType: models.VoteUp}
	down := &models.Vote{VoteType: models.VoteDown}

	tests := []struct {
		name     string
		existing *models.Vote
		cast     models.VoteType
		action   string
		current  *models.VoteType
		up, down int
	}{
		{"first upvote", nil, models.VoteUp, VoteAdded, ptr(models.VoteUp), 1, 0},
		{"first downvote", nil, models.VoteDown, VoteAdded, ptr(models.VoteDown), 0, 1},
		{"repeat upvote removes", up, models.VoteUp, VoteRemoved, nil, -1, 0},
		{"repeat downvote removes", down, models.VoteDown, VoteRemoved, nil, 0, -1},
		{"up to down", up, models.VoteDown, VoteChanged, ptr(models.VoteDown), -1, 1},
		{"down to up", down, models.VoteUp, VoteChanged, ptr(models.VoteUp), 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := resolveVote(tt.existing, tt.cast)
			assert.Equal(t, tt.action, c.action)
			assert.Equal(t, tt.current, c.current)
			assert.Equal(t, tt.up, c.upDelta)
			assert.Equal(t, tt.down, c.downDelta)
		})
	}
}

func TestNewAlertValidation(t *testing.T) {
	lat, lng := 19.07, 72.87
	valid := func() *dto.CreateAlertRequest {
		return &dto.CreateAlertRequest{
			Title:       " Water main burst ",
			Description: "Flooding on the main road",
			LocationLat: &lat,
			LocationLng: &lng,
		}
	}

	a, err := newAlert(nil, valid())
	require.NoError(t, err)
	assert.Equal(t, "Water main burst", a.Title)
	assert.Equal(t, models.CategoryOther, a.Category)
	assert.Equal(t, models.SeverityMedium, a.Severity)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Zero(t, a.Upvotes)
	assert.Nil(t, a.UserID)

	tests := []struct {
		name  string
		field string
		edit  func(r *dto.CreateAlertRequest)
	}{
		{"blank title", "title", func(r *dto.CreateAlertRequest) { r.Title = "  " }},
		{"long title", "title", func(r *dto.CreateAlertRequest) { r.Title = string(make([]rune, 201)) + "x" }},
		{"blank description", "description", func(r *dto.CreateAlertRequest) { r.Description = "" }},
		{"missing location", "location", func(r *dto.CreateAlertRequest) { r.LocationLng = nil }},
		{"latitude out of range", "location_lat", func(r *dto.CreateAlertRequest) { r.LocationLat = ptr(91.0) }},
		{"longitude out of range", "location_lng", func(r *dto.CreateAlertRequest) { r.LocationLng = ptr(-180.5) }},
		{"unknown category", "category", func(r *dto.CreateAlertRequest) { r.Category = "earthquake" }},
		{"unknown severity", "severity", func(r *dto.CreateAlertRequest) { r.Severity = "extreme" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.edit(req)
			_, err := newAlert(nil, req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestGroupTabs(t *testing.T) {
	alerts := []models.Alert{
		{ID: uuid.New(), Status: models.StatusVerified},
		{ID: uuid.New(), Status: models.StatusPending},
		{ID: uuid.New(), Status: models.StatusVerified},
		{ID: uuid.New(), Status: models.StatusResolved},
	}

	tabs := GroupTabs(alerts)
	assert.Equal(t, []uuid.UUID{alerts[0].ID, alerts[2].ID}, []uuid.UUID{tabs.Verified[0].ID, tabs.Verified[1].ID})
	assert.Len(t, tabs.Pending, 1)
	assert.NotNil(t, tabs.Rejected)
	assert.Empty(t, tabs.Rejected)
	assert.Equal(t, map[models.Status]int{
		models.StatusPending:  1,
		models.StatusVerified: 2,
		models.StatusRejected: 0,
		models.StatusResolved: 1,
	}, tabs.Counts)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultFeedLimit, ClampLimit(0))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxFeedLimit, ClampLimit(1000))
}

func TestSummarizeWindow(t *testing.T) {
	now := time.Date(2026, 5, 30, 15, 0, 0, 0, time.UTC)
	verifiedAt := now.Add(-2 * time.Hour)

	alerts := []models.Alert{
		{Status: models.StatusVerified, CreatedAt: now.Add(-6 * time.Hour), VerifiedAt: &verifiedAt},
		{Status: models.StatusPending, CreatedAt: now.Add(-1 * time.Hour)},
		{Status: models.StatusPending, CreatedAt: now.AddDate(0, 0, -29)},
		{Status: models.StatusRejected, CreatedAt: now.AddDate(0, 0, -40)},
	}

	trend, avg := summarizeWindow(alerts, now, 30)
	require.Len(t, trend, 30)
	assert.Equal(t, "2026-05-01", trend[0].Date)
	assert.Equal(t, "2026-05-30", trend[29].Date)
	assert.Equal(t, dto.TrendPoint{Date: "2026-05-30", Total: 2, Verified: 1, Pending: 1}, trend[29])
	assert.Equal(t, 1, trend[0].Pending)
	assert.Zero(t, trend[15].Total)

	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 0.001)

	_, none := summarizeWindow(nil, now, 30)
	assert.Nil(t, none)
}

func TestVerificationRate(t *testing.T) {
	assert.Equal(t, 0.0, verificationRate(0, 0))
	assert.Equal(t, 33.3, verificationRate(1, 3))
	assert.Equal(t, 100.0, verificationRate(4, 4))
}

func TestContentFilter(t *testing.T) {
	f := NewContentFilter()

	tests := []struct {
		text   string
		ok     bool
		reason string
	}{
		{"Road is clear again near the market", true, ""},
		{"This is bullshit", false, ReasonLanguage},
		{"see https://example.com for more", false, ReasonURL},
		{"mail me at someone@example.com", false, ReasonContactInfo},
		{"call 555-123-4567", false, ReasonContactInfo},
		{"soooooo bad", false, ReasonSpam},
		{"WHY IS THIS STILL BLOCKED HELLO", false, ReasonExcessiveCap},
		{"Passed by at 9am, water still flowing", true, ""},
	}

	for _, tt := range tests {
		ok, reason := f.Check(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.reason, reason, tt.text)
	}
	assert.NotEmpty(t, RejectionMessage("unknown"))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestImageServiceStore(t *testing.T) {
	store := &memoryStore{}
	svc := NewImageService(store, 1024)

	url, err := svc.Store(context.Background(), &Upload{Filename: "Photo.PNG", Data: pngHeader})
	require.NoError(t, err)
	assert.Regexp(t, `^https://cdn\.example\.com/alerts/[0-9a-f-]{36}\.png$`, url)
	assert.Len(t, store.puts, 1)

	_, err = svc.Store(context.Background(), &Upload{Filename: "notes.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, ErrNotAnImage)

	big := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	_, err = svc.Store(context.Background(), &Upload{Filename: "big.png", Data: big})
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = NewImageService(nil, 1024).Store(context.Background(), &Upload{Filename: "a.png", Data: pngHeader})
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func alertRow(id uuid.UUID, status models.Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "status", "severity", "image_url", "upvotes", "downvotes"}).
		AddRow(id.String(), "Burst pipe", string(status), string(models.SeverityMedium), "https://cdn.example.com/alerts/x.png", 2, 1)
}

func TestVerifyWritesStatusAndAuditTogether(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	svc := NewModerationService(db, events, nil, nil)
	actor, alertID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1`).
		WillReturnRows(alertRow(alertID, models.StatusPending))
	mock.ExpectExec(`UPDATE "alerts" SET .+ WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "admin_actions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	high := models.SeverityHigh
	alert, err := svc.Verify(context.Background(), actor, alertID, &dto.ModerationRequest{Notes: "confirmed", Severity: &high})
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, alert.Status)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	require.NotNil(t, alert.VerifiedBy)
	assert.Equal(t, actor, *alert.VerifiedBy)
	assert.NotNil(t, alert.VerifiedAt)
	assert.Equal(t, []realtime.EventType{realtime.EventUpdate}, events.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyLosesRaceWithoutAudit(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	svc := NewModerationService(db, events, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts"`).
		WillReturnRows(alertRow(uuid.New(), models.StatusPending))
	mock.ExpectExec(`UPDATE "alerts"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Verify(context.Background(), uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.Empty(t, events.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReverifyIsIdempotent(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	svc := NewModerationService(db, events, nil, nil)
	alertID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts"`).
		WillReturnRows(alertRow(alertID, models.StatusVerified))
	mock.ExpectCommit()

	alert, err := svc.Verify(context.Background(), uuid.New(), alertID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, alert.Status)
	assert.Empty(t, events.types(), "no change means no event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectTerminalAlertIsInvalid(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewModerationService(db, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts"`).
		WillReturnRows(alertRow(uuid.New(), models.StatusResolved))
	mock.ExpectRollback()

	_, err := svc.Reject(context.Background(), uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerateMissingAlert(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewModerationService(db, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.Resolve(context.Background(), uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascadesAndAudits(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	store := &memoryStore{}
	svc := NewModerationService(db, events, nil, NewImageService(store, 1024))
	alertID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts"`).
		WillReturnRows(alertRow(alertID, models.StatusRejected))
	mock.ExpectExec(`DELETE FROM "user_votes" WHERE alert_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "alert_comments" WHERE alert_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "alerts" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "admin_actions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), alertID, "duplicate"))
	assert.Equal(t, []realtime.EventType{realtime.EventDelete}, events.types())
	assert.Equal(t, []string{"https://cdn.example.com/alerts/x.png"}, store.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastFirstVote(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	svc := NewVoteService(db, events)
	alertID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(alertRow(alertID, models.StatusVerified))
	mock.ExpectQuery(`SELECT \* FROM "user_votes" WHERE user_id = \$1 AND alert_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "user_votes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec(`UPDATE "alerts" SET "downvotes"=GREATEST\(downvotes \+ \$1, 0\),"upvotes"=GREATEST\(upvotes \+ \$2, 0\)`).
		WithArgs(0, 1, alertID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Cast(context.Background(), uuid.New(), alertID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteAdded, res.Action)
	assert.Equal(t, ptr(models.VoteUp), res.VoteType)
	assert.Equal(t, 3, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	assert.Equal(t, []realtime.EventType{realtime.EventUpdate}, events.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func voteRow(id, userID, alertID uuid.UUID, t models.VoteType) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "alert_id", "vote_type"}).
		AddRow(id.String(), userID.String(), alertID.String(), string(t))
}

func TestCastSamePolarityRemovesVote(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewVoteService(db, &recordingPublisher{})
	userID, alertID, voteID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(alertRow(alertID, models.StatusVerified))
	mock.ExpectQuery(`SELECT \* FROM "user_votes" WHERE user_id = \$1 AND alert_id = \$2`).
		WillReturnRows(voteRow(voteID, userID, alertID, models.VoteUp))
	mock.ExpectExec(`DELETE FROM "user_votes" WHERE id = \$1`).
		WithArgs(voteID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "alerts" SET "downvotes"=GREATEST\(downvotes \+ \$1, 0\),"upvotes"=GREATEST\(upvotes \+ \$2, 0\)`).
		WithArgs(0, -1, alertID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Cast(context.Background(), userID, alertID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteRemoved, res.Action)
	assert.Nil(t, res.VoteType, "no vote remains")
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastOppositePolaritySwitchesVote(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewVoteService(db, &recordingPublisher{})
	userID, alertID, voteID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(alertRow(alertID, models.StatusResolved))
	mock.ExpectQuery(`SELECT \* FROM "user_votes" WHERE user_id = \$1 AND alert_id = \$2`).
		WillReturnRows(voteRow(voteID, userID, alertID, models.VoteDown))
	mock.ExpectExec(`UPDATE "user_votes" SET "vote_type"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs("up", sqlmock.AnyArg(), voteID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "alerts" SET "downvotes"=GREATEST\(downvotes \+ \$1, 0\),"upvotes"=GREATEST\(upvotes \+ \$2, 0\)`).
		WithArgs(-1, 1, alertID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Cast(context.Background(), userID, alertID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteChanged, res.Action)
	assert.Equal(t, ptr(models.VoteUp), res.VoteType)
	assert.Equal(t, 3, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastOnPendingAlertIsHidden(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewVoteService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(alertRow(uuid.New(), models.StatusPending))
	mock.ExpectRollback()

	_, err := svc.Cast(context.Background(), uuid.New(), uuid.New(), models.VoteDown)
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastRejectsUnknownPolarity(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	_, err := NewVoteService(db, nil).Cast(context.Background(), uuid.New(), uuid.New(), "sideways")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile(t *testing.T) {
	db, mock := testutil.NewMockDB(t)

	mock.ExpectExec(`UPDATE alerts AS a`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewVoteService(db, nil).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendComment(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewCommentService(db, NewContentFilter())
	alertID, author := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(alertID.String()))
	mock.ExpectQuery(`INSERT INTO "alert_comments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT "full_name","avatar_url" FROM "profiles" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"full_name", "avatar_url"}).AddRow("Asha Rao", ""))

	view, err := svc.Append(context.Background(), alertID, author, "  Still flooded at 6pm  ")
	require.NoError(t, err)
	assert.Equal(t, "Still flooded at 6pm", view.Content)
	assert.Equal(t, "Asha Rao", view.AuthorName)
	assert.Equal(t, alertID, view.AlertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendCommentToDeletedAlert(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewCommentService(db, NewContentFilter())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "alerts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.Append(context.Background(), uuid.New(), uuid.New(), "Water is back on")
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "no comment row is written")
}

func TestAppendCommentScreensContent(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewCommentService(db, NewContentFilter())

	for _, text := range []string{"   ", string(make([]byte, 1001)) + "a", "visit www.spam.example.com now"} {
		_, err := svc.Append(context.Background(), uuid.New(), uuid.New(), text)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicFeedRejectsUnknownFilters(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	feeds := NewFeedService(NewAlertService(db, nil, nil))

	_, err := feeds.Public(context.Background(), PublicQuery{Categories: []models.Category{"volcano"}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicFeedOnlyReadsVerified(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	feeds := NewFeedService(NewAlertService(db, nil, nil))

	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE status IN \(\$1\) AND category IN \(\$2,\$3\) ORDER BY created_at DESC, id DESC LIMIT \$4`).
		WithArgs(models.StatusVerified, models.CategoryRoadBlock, models.CategoryPowerOutage, 20).
		WillReturnRows(alertRow(uuid.New(), models.StatusVerified))

	alerts, err := feeds.Public(context.Background(), PublicQuery{
		Categories: []models.Category{models.CategoryRoadBlock, models.CategoryPowerOutage},
	})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const publicFeedQuery = `SELECT \* FROM "alerts" WHERE status IN \(\$1\) ORDER BY created_at DESC, id DESC LIMIT \$2`

func TestVerifiedAlertReachesPublicFeed(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	events := &recordingPublisher{}
	alerts := NewAlertService(db, nil, events)
	feeds := NewFeedService(alerts)
	moderation := NewModerationService(db, events, nil, nil)
	ctx := context.Background()
	admin := uuid.New()

	alertID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "alerts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(alertID.String()))
	mock.ExpectCommit()

	created, err := alerts.Create(ctx, nil, &dto.CreateAlertRequest{
		Title:       "Pipe burst on Main St",
		Description: "Water flowing across both lanes",
		Category:    models.CategoryWaterDisruption,
		LocationLat: ptr(12.9716),
		LocationLng: ptr(77.5946),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, alertID, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)

	mock.ExpectQuery(publicFeedQuery).
		WithArgs("verified", DefaultFeedLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status"}))

	before, err := feeds.Public(ctx, PublicQuery{})
	require.NoError(t, err)
	assert.Empty(t, before, "pending alerts stay out of the public feed")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "severity"}).
			AddRow(alertID.String(), created.Title, "pending", "medium"))
	mock.ExpectExec(`UPDATE "alerts" SET "status"=\$1,"updated_at"=\$2,"verified_at"=\$3,"verified_by"=\$4 WHERE id = \$5 AND status = \$6`).
		WithArgs("verified", sqlmock.AnyArg(), sqlmock.AnyArg(), admin.String(), alertID.String(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "admin_actions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	verified, err := moderation.Verify(ctx, admin, alertID, nil)
	require.NoError(t, err)
	require.NotNil(t, verified.VerifiedAt)

	mock.ExpectQuery(publicFeedQuery).
		WithArgs("verified", DefaultFeedLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "verified_by", "verified_at"}).
			AddRow(alertID.String(), created.Title, "verified", admin.String(), *verified.VerifiedAt))

	after, err := feeds.Public(ctx, PublicQuery{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Pipe burst on Main St", after[0].Title)
	assert.Equal(t, models.StatusVerified, after[0].Status)
	require.NotNil(t, after[0].VerifiedBy)
	assert.Equal(t, admin, *after[0].VerifiedBy)
	assert.NotNil(t, after[0].VerifiedAt)

	assert.Equal(t, []realtime.EventType{realtime.EventInsert, realtime.EventUpdate}, events.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRoleGuardsSelfChange(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	svc := NewProfileService(db)
	id := uuid.New()

	_, err := svc.SetRole(context.Background(), id, id, models.RoleCitizen)
	assert.ErrorIs(t, err, ErrSelfRoleChange)

	_, err = svc.SetRole(context.Background(), id, uuid.New(), "owner")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
