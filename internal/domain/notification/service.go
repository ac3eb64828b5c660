package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

var _ Emitter = (*StoreEmitter)(nil)

// StoreEmitter writes notifications straight to the repository.
type StoreEmitter struct {
	repo Repository
	now  func() time.Time
}

// NewStoreEmitter returns an Emitter backed by repo.
func NewStoreEmitter(repo Repository) *StoreEmitter {
	return &StoreEmitter{repo: repo, now: time.Now}
}

// Emit stores the notice and returns the stored notification, or nil when the
// write failed.
func (e *StoreEmitter) Emit(ctx context.Context, n Notice) *Notification {
	rec := n.Build(uuid.New().String(), e.now())
	if err := e.repo.Create(ctx, rec); err != nil {
		zctx.From(ctx).Warn("Notification dropped",
			zap.String("supplier_id", n.SupplierID),
			zap.String("title", n.Title),
			zap.Error(err),
		)
		return nil
	}
	return rec
}

// Entry is a notification decorated for display.
type Entry struct {
	Notification
	TimeAgo   string `json:"timeAgo"`
	DateGroup string `json:"dateGroup"`
}

// Group holds the entries sharing a date group, in listing order.
type Group struct {
	DateGroup     string  `json:"dateGroup"`
	Notifications []Entry `json:"notifications"`
}

// Inbox is one page of a supplier's notifications.
type Inbox struct {
	Entries     []Entry
	Groups      []Group
	Total       int
	UnreadCount int
	Page        int
	Limit       int
}

// Service implements the notification inbox.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a notification Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns a page of the inbox, newest first, grouped by date.
func (s *Service) List(ctx context.Context, f Filter) (*Inbox, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Type == "All" {
		f.Type = ""
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validationf("Invalid notification type: %s", f.Type)
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, f.SupplierID)
	if err != nil {
		return nil, errors.Wrap(err, "count unread")
	}

	now := s.now()
	inbox := &Inbox{
		Entries:     make([]Entry, 0, len(items)),
		Total:       total,
		UnreadCount: unread,
		Page:        f.Page,
		Limit:       f.Limit,
	}
	groupIdx := make(map[string]int)
	for _, n := range items {
		e := Entry{
			Notification: n,
			TimeAgo:      TimeAgo(n.CreatedAt, now),
			DateGroup:    DateGroup(n.CreatedAt, now),
		}
		inbox.Entries = append(inbox.Entries, e)

		i, ok := groupIdx[e.DateGroup]
		if !ok {
			i = len(inbox.Groups)
			groupIdx[e.DateGroup] = i
			inbox.Groups = append(inbox.Groups, Group{DateGroup: e.DateGroup})
		}
		inbox.Groups[i].Notifications = append(inbox.Groups[i].Notifications, e)
	}
	return inbox, nil
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, supplierID, id string) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the supplier as read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, supplierID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, supplierID)
	if err != nil {
		return 0, errors.Wrap(err, "mark all read")
	}
	return n, nil
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	if err := s.repo.Delete(ctx, supplierID, id); err != nil {
		return notFound(err, id)
	}
	return nil
}

func notFound(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &apperr.NotFoundError{Entity: "notification", ID: id, Message: "Notification not found"}
	}
	return errors.Wrapf(err, "notification %s", id)
}
