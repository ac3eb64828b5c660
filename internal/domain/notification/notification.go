package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a notification does not exist for the supplier.
var ErrNotFound = errors.New("notification not found")

// Type classifies a notification.
type Type string

const (
	TypeOrder    Type = "Order"
	TypeProduct  Type = "Product"
	TypeCampaign Type = "Campaign"
	TypeReview   Type = "Review"
	TypePayment  Type = "Payment"
	TypeSystem   Type = "System"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeOrder, TypeProduct, TypeCampaign, TypeReview, TypePayment, TypeSystem:
		return true
	}
	return false
}

// Icon names the glyph a client renders next to a notification.
type Icon string

const (
	IconOrder    Icon = "order"
	IconAlert    Icon = "alert"
	IconCampaign Icon = "campaign"
	IconReview   Icon = "review"
	IconPayment  Icon = "payment"
	IconSystem   Icon = "system"
)

// Notification is one inbox entry of a supplier.
type Notification struct {
	ID          string         `json:"id"`
	SupplierID  string         `json:"supplierId"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Icon        Icon           `json:"icon"`
	IsRead      bool           `json:"isRead"`
	RelatedID   string         `json:"relatedId,omitempty"`
	RelatedType string         `json:"relatedType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Notice is the input of Emit.
type Notice struct {
	SupplierID  string
	Type        Type
	Title       string
	Message     string
	Icon        Icon
	RelatedID   string
	RelatedType string
	Metadata    map[string]any
}

// Build turns a notice into an unread notification.
func (n Notice) Build(id string, now time.Time) *Notification {
	icon := n.Icon
	if icon == "" {
		icon = IconSystem
	}
	return &Notification{
		ID:          id,
		SupplierID:  n.SupplierID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Icon:        icon,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		Metadata:    n.Metadata,
		CreatedAt:   now,
	}
}

// Emitter records notifications on a best-effort basis. Emit never fails the
// caller: it returns nil when the notification could not be recorded and logs
// the cause.
type Emitter interface {
	Emit(ctx context.Context, n Notice) *Notification
}

// DefaultPageLimit is the inbox page size used when the caller gives none.
const DefaultPageLimit = 50

// Filter narrows an inbox listing.
type Filter struct {
	SupplierID string
	Type       Type
	IsRead     *bool
	Page       int
	Limit      int
}

// Repository defines persistence operations for notifications.
type Repository interface {
	// Create stores n. Storing an id that already exists is a no-op.
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, f Filter) ([]Notification, int, error)
	CountUnread(ctx context.Context, supplierID string) (int, error)
	MarkRead(ctx context.Context, supplierID, id string) (*Notification, error)
	MarkAllRead(ctx context.Context, supplierID string) (int64, error)
	Delete(ctx context.Context, supplierID, id string) error
}
