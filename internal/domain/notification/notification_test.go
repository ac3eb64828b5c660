package notification

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

type mockRepo struct {
	items     []Notification
	createErr error
	unread    int
	markErr   error
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *mockRepo) List(context.Context, Filter) ([]Notification, int, error) {
	return m.items, len(m.items), nil
}

func (m *mockRepo) CountUnread(context.Context, string) (int, error) { return m.unread, nil }

func (m *mockRepo) MarkRead(_ context.Context, _, id string) (*Notification, error) {
	if m.markErr != nil {
		return nil, m.markErr
	}
	return &Notification{ID: id, IsRead: true}, nil
}

func (m *mockRepo) MarkAllRead(context.Context, string) (int64, error) { return 3, nil }

func (m *mockRepo) Delete(context.Context, string, string) error { return ErrNotFound }

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23*time.Hour + 59*time.Minute, "23 hours ago"},
		{24 * time.Hour, "Yesterday at 3:30 PM"},
		{30 * time.Hour, "Yesterday at 9:30 AM"},
		{48 * time.Hour, "Mar 8, 2025"},
		{40 * 24 * time.Hour, "Jan 29, 2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.ago), now), tt.ago.String())
	}
}

func TestDateGroup(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "Today", DateGroup(now.Add(-5*time.Hour), now))
	assert.Equal(t, "Yesterday", DateGroup(now.Add(-25*time.Hour), now))
	assert.Equal(t, "Mar 7, 2025", DateGroup(now.Add(-72*time.Hour), now))
}

func TestStoreEmitter_SwallowsErrors(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("disk full")}
	e := NewStoreEmitter(repo)

	got := e.Emit(context.Background(), Notice{SupplierID: "s1", Type: TypeSystem, Title: "hello"})
	assert.Nil(t, got)
}

func TestStoreEmitter_DefaultsIcon(t *testing.T) {
	repo := &mockRepo{}
	e := NewStoreEmitter(repo)

	got := e.Emit(context.Background(), Notice{SupplierID: "s1", Type: TypeSystem, Title: "hello"})
	require.NotNil(t, got)
	assert.Equal(t, IconSystem, got.Icon)
	assert.False(t, got.IsRead)
	assert.NotEmpty(t, got.ID)
	require.Len(t, repo.items, 1)
}

func TestService_ListGroupsByDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &mockRepo{
		unread: 2,
		items: []Notification{
			{ID: "a", CreatedAt: now.Add(-time.Minute)},
			{ID: "b", CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "c", CreatedAt: now.Add(-26 * time.Hour)},
			{ID: "d", CreatedAt: now.Add(-80 * time.Hour)},
		},
	}
	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	inbox, err := svc.List(context.Background(), Filter{SupplierID: "s1", Type: "All"})
	require.NoError(t, err)

	assert.Equal(t, 4, inbox.Total)
	assert.Equal(t, 2, inbox.UnreadCount)
	assert.Equal(t, DefaultPageLimit, inbox.Limit)
	require.Len(t, inbox.Groups, 3)
	assert.Equal(t, "Today", inbox.Groups[0].DateGroup)
	assert.Len(t, inbox.Groups[0].Notifications, 2)
	assert.Equal(t, "Yesterday", inbox.Groups[1].DateGroup)
	assert.Equal(t, "Mar 7, 2025", inbox.Groups[2].DateGroup)
	assert.Equal(t, "1 minute ago", inbox.Entries[0].TimeAgo)
}

func TestService_ListRejectsUnknownType(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.List(context.Background(), Filter{SupplierID: "s1", Type: "Spam"})
	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestService_DeleteNotFound(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Delete(context.Background(), "s1", "missing")
	var nfErr *apperr.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}
