package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/uniformhub-backend/internal/access/accesstest"
	"github.com/angelmondragon/uniformhub-backend/internal/users"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepository struct {
	listFn func(ctx context.Context, params inboxQuery) ([]models.UserNotification, string, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.UserNotification) error {
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params inboxQuery) ([]models.UserNotification, string, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, "", nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (readOutcome, error) {
	return readMissing, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	recorder *changefeed.Recorder
	parent   *models.User
	other    *models.User
	admin    *models.User
}

func newFixture(t *testing.T, repo Repository) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	if repo == nil {
		repo = NewRepository(conn)
	}
	recorder := &changefeed.Recorder{}
	svc, err := NewService(repo, users.NewRepository(conn), accesstest.Guard(t, conn), recorder)
	require.NoError(t, err)
	return fixture{
		conn:     conn,
		svc:      svc,
		recorder: recorder,
		parent:   accesstest.SeedUser(t, conn, "parent_1", enums.UserRoleUser),
		other:    accesstest.SeedUser(t, conn, "parent_2", enums.UserRoleUser),
		admin:    accesstest.SeedUser(t, conn, "admin_1", enums.UserRoleAdmin),
	}
}

func seedNotification(t *testing.T, conn *gorm.DB, userID uuid.UUID, message string, at time.Time) models.UserNotification {
	t.Helper()
	n := models.UserNotification{UserID: userID, Message: message, Type: enums.NotificationTypeInfo, CreatedAt: at}
	require.NoError(t, conn.Create(&n).Error)
	return n
}

func TestService_AddRequiresExistingUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := accesstest.AsUser(f.admin)

	created, err := f.svc.Add(ctx, AddInput{UserID: f.parent.ID, Message: "Your order shipped", Type: enums.NotificationTypeSuccess})
	require.NoError(t, err)
	assert.False(t, created.Read)
	assert.Equal(t, []string{changefeed.UserNotificationsTopic(f.parent.ID)}, f.recorder.Topics())

	_, err = f.svc.Add(ctx, AddInput{UserID: uuid.New(), Message: "hello", Type: enums.NotificationTypeInfo})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Add(accesstest.Anonymous(), AddInput{UserID: f.parent.ID, Message: "hello", Type: enums.NotificationTypeInfo})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Add(ctx, AddInput{UserID: f.parent.ID, Message: "hello", Type: "loud"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestService_MarkAsReadChecksOwnership(t *testing.T) {
	f := newFixture(t, nil)
	mine := seedNotification(t, f.conn, f.parent.ID, "mine", time.Now().UTC())
	theirs := seedNotification(t, f.conn, f.other.ID, "theirs", time.Now().UTC())
	ctx := accesstest.AsUser(f.parent)

	require.NoError(t, f.svc.MarkAsRead(ctx, mine.ID))
	require.NoError(t, f.svc.MarkAsRead(ctx, mine.ID))

	err := f.svc.MarkAsRead(ctx, theirs.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = f.svc.MarkAsRead(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var reloaded models.UserNotification
	require.NoError(t, f.conn.First(&reloaded, "id = ?", theirs.ID).Error)
	assert.False(t, reloaded.Read)
	assert.Len(t, f.recorder.Events(), 1)
}

func TestService_GetByUserNewestFirstWithCursor(t *testing.T) {
	f := newFixture(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedNotification(t, f.conn, f.parent.ID, []string{"first", "second", "third"}[i], base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, f.conn, f.other.ID, "not mine", base)
	ctx := accesstest.AsUser(f.parent)

	page, err := f.svc.GetByUser(ctx, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Message)
	assert.Equal(t, "second", page.Items[1].Message)
	require.NotEmpty(t, page.Cursor)

	next, err := f.svc.GetByUser(ctx, ListParams{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "first", next.Items[0].Message)
	assert.Empty(t, next.Cursor)

	_, err = f.svc.GetByUser(ctx, ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestService_GetByUserSoftDenials(t *testing.T) {
	f := newFixture(t, nil)
	seedNotification(t, f.conn, f.other.ID, "private", time.Now().UTC())

	anonymous, err := f.svc.GetByUser(accesstest.Anonymous(), ListParams{})
	require.NoError(t, err)
	assert.NotNil(t, anonymous.Items)
	assert.Empty(t, anonymous.Items)

	unknown, err := f.svc.GetByUser(accesstest.As("never_bootstrapped"), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, unknown.Items)

	snooping, err := f.svc.GetByUser(accesstest.AsUser(f.parent), ListParams{UserID: &f.other.ID})
	require.NoError(t, err)
	assert.Empty(t, snooping.Items)

	asAdmin, err := f.svc.GetByUser(accesstest.AsUser(f.admin), ListParams{UserID: &f.other.ID})
	require.NoError(t, err)
	assert.Len(t, asAdmin.Items, 1)
}

func TestService_MarkAllAsRead(t *testing.T) {
	f := newFixture(t, nil)
	seedNotification(t, f.conn, f.parent.ID, "a", time.Now().UTC())
	seedNotification(t, f.conn, f.parent.ID, "b", time.Now().UTC())
	seedNotification(t, f.conn, f.other.ID, "c", time.Now().UTC())

	count, err := f.svc.MarkAllAsRead(accesstest.AsUser(f.parent))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	unread, err := f.svc.GetByUser(accesstest.AsUser(f.other), ListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 1)
}

func TestService_GetByUserDependencyFailure(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params inboxQuery) ([]models.UserNotification, string, error) {
			return nil, "", errors.New("boom")
		},
	}
	f := newFixture(t, repo)

	_, err := f.svc.GetByUser(accesstest.AsUser(f.parent), ListParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
