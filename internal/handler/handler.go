package handler

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/campaign"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/product"
	"github.com/xenking/instasupply/internal/domain/profile"
	"github.com/xenking/instasupply/internal/domain/review"
	"github.com/xenking/instasupply/internal/domain/store"
)

// OrderService is the order lifecycle used by the HTTP layer.
type OrderService interface {
	PlaceOrder(ctx context.Context, actor order.Actor, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	UpdateStatus(ctx context.Context, actor order.Actor, id, status, note string) (*order.Order, error)
	UpdateDetails(ctx context.Context, supplierID, id string, patch order.DetailsPatch) (*order.Order, error)
	Delete(ctx context.Context, supplierID, id string) error
	Get(ctx context.Context, supplierID, id string) (*order.Order, error)
	List(ctx context.Context, f order.Filter) (*order.ListResult, error)
	Recent(ctx context.Context, supplierID string, limit int) ([]order.Order, error)
}

// ProductService is the catalog used by the HTTP layer.
type ProductService interface {
	List(ctx context.Context, f product.Filter) (*product.Page, error)
	Get(ctx context.Context, supplierID, id string) (*product.Product, error)
	Create(ctx context.Context, supplierID string, in product.Input) (*product.Product, error)
	Update(ctx context.Context, supplierID, id string, in product.Input) (*product.Product, error)
	Delete(ctx context.Context, supplierID, id string) error
}

// NotificationService is the inbox used by the HTTP layer.
type NotificationService interface {
	List(ctx context.Context, f notification.Filter) (*notification.Inbox, error)
	MarkRead(ctx context.Context, supplierID, id string) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, supplierID string) (int64, error)
	Delete(ctx context.Context, supplierID, id string) error
}

// AuthService manages supplier accounts and sessions.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Supplier, error)
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error)
	ChangeEmail(ctx context.Context, oldEmail, newEmail string) (*auth.Supplier, error)
	Authenticate(ctx context.Context, raw string) (*auth.Supplier, *auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// ReviewService handles customer reviews and their aggregates.
type ReviewService interface {
	List(ctx context.Context, f review.Filter) (*review.Page, error)
	Summary(ctx context.Context, supplierID string) (*review.Summary, error)
	Create(ctx context.Context, in review.CreateInput) (*review.Review, error)
	Reply(ctx context.Context, supplierID, supplierName, id, companyName, text string) (*review.Review, error)
	Delete(ctx context.Context, supplierID, id string) error
}

// CampaignService manages ad campaigns and their metrics.
type CampaignService interface {
	List(ctx context.Context, f campaign.Filter) (*campaign.Page, error)
	Get(ctx context.Context, supplierID, id string) (*campaign.Campaign, error)
	Create(ctx context.Context, supplierID string, in campaign.Input) (*campaign.Campaign, error)
	Update(ctx context.Context, supplierID, id string, in campaign.Input) (*campaign.Campaign, error)
	Stats(ctx context.Context, supplierID, id string) (*campaign.Stats, error)
	Insights(ctx context.Context, supplierID, id string) (*campaign.Insights, error)
	RecordMetrics(ctx context.Context, supplierID, id string, impressions, clicks int64) (*campaign.Campaign, error)
	Delete(ctx context.Context, supplierID, id string) error
}

// StoreService manages the storefront settings.
type StoreService interface {
	Settings(ctx context.Context, supplierID string) (*store.Settings, error)
	UpdateSettings(ctx context.Context, supplierID string, p store.Patch) (*store.Settings, error)
	Rate(ctx context.Context, supplierID string, rating int) (*store.Settings, error)
}

// ProfileService serves the supplier's account and public profile.
type ProfileService interface {
	Me(ctx context.Context, supplierID string) (*auth.Supplier, error)
	Update(ctx context.Context, supplierID string, in profile.Input) (*auth.Supplier, error)
	Info(ctx context.Context, supplierID string) (*profile.Info, error)
}

var (
	_ OrderService        = (*order.Service)(nil)
	_ ProductService      = (*product.Service)(nil)
	_ NotificationService = (*notification.Service)(nil)
	_ AuthService         = (*auth.Service)(nil)
	_ ReviewService       = (*review.Service)(nil)
	_ CampaignService     = (*campaign.Service)(nil)
	_ StoreService        = (*store.Service)(nil)
	_ ProfileService      = (*profile.Service)(nil)
)

// Services are the domain dependencies of the Handler.
type Services struct {
	Orders        OrderService
	Products      ProductService
	Notifications NotificationService
	Auth          AuthService
	Reviews       ReviewService
	Campaigns     CampaignService
	Store         StoreService
	Profiles      ProfileService
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the supplier REST API, delegating business logic to the
// domain services.
type Handler struct {
	orders        OrderService
	products      ProductService
	notifications NotificationService
	auth          AuthService
	reviews       ReviewService
	campaigns     CampaignService
	store         StoreService
	profiles      ProfileService
	imageBaseURL  string
	metrics       *metrics
	now           func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, svc Services, meter metric.Meter) (*Handler, error) {
	m, err := newMetrics(meter)
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	return &Handler{
		orders:        svc.Orders,
		products:      svc.Products,
		notifications: svc.Notifications,
		auth:          svc.Auth,
		reviews:       svc.Reviews,
		campaigns:     svc.Campaigns,
		store:         svc.Store,
		profiles:      svc.Profiles,
		imageBaseURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		metrics:       m,
		now:           time.Now,
	}, nil
}

// imageURL prepends the base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) imageURLs(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = h.imageURL(p)
	}
	return out
}
