package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/store"
)

// Suppliers resolves the supplier a review is written for.
type Suppliers interface {
	GetByID(ctx context.Context, id string) (*auth.Supplier, error)
}

// Ratings folds a review rating into the store rating.
type Ratings interface {
	AddRating(ctx context.Context, supplierID string, rating int) (*store.Settings, error)
}

// CreateInput is a review submitted by a customer.
type CreateInput struct {
	SupplierID    string
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Rating        int
	Text          string
	Images        []string
}

// Page is one page of a review listing with the supplier's rating
// distribution in percent.
type Page struct {
	Reviews      []Review
	Total        int
	Page         int
	Limit        int
	Distribution map[int]int
}

// Summary aggregates all visible reviews of a supplier.
type Summary struct {
	Average      decimal.Decimal
	Total        int
	Distribution map[int]int
}

// Service implements review submission, moderation and aggregation.
type Service struct {
	repo      Repository
	suppliers Suppliers
	ratings   Ratings
	notifier  notification.Emitter
	now       func() time.Time
}

// NewService creates a review Service.
func NewService(repo Repository, suppliers Suppliers, ratings Ratings, notifier notification.Emitter) *Service {
	return &Service{
		repo:      repo,
		suppliers: suppliers,
		ratings:   ratings,
		notifier:  notifier,
		now:       time.Now,
	}
}

// List returns a page of visible reviews.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Rating != 0 && (f.Rating < MinRating || f.Rating > MaxRating) {
		return nil, apperr.Validationf("Invalid rating: %d", f.Rating)
	}
	if f.Sort == "" {
		f.Sort = SortRecent
	}
	if !f.Sort.Valid() {
		return nil, apperr.Validationf("Invalid sort order: %s", f.Sort)
	}

	reviews, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	dist, err := s.repo.Distribution(ctx, f.SupplierID)
	if err != nil {
		return nil, errors.Wrap(err, "review distribution")
	}
	return &Page{
		Reviews:      reviews,
		Total:        total,
		Page:         f.Page,
		Limit:        f.Limit,
		Distribution: dist.Percentages(),
	}, nil
}

// Summary returns the average rating, review count and distribution.
func (s *Service) Summary(ctx context.Context, supplierID string) (*Summary, error) {
	dist, err := s.repo.Distribution(ctx, supplierID)
	if err != nil {
		return nil, errors.Wrap(err, "review distribution")
	}
	return &Summary{
		Average:      dist.Average(),
		Total:        dist.Total(),
		Distribution: dist.Percentages(),
	}, nil
}

// Create stores a customer review, updates the store rating and notifies the
// supplier. Rating and notification failures are logged only.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Review, error) {
	in.SupplierID = strings.TrimSpace(in.SupplierID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.SupplierID == "" || in.Rating == 0 || in.CustomerName == "" {
		return nil, &apperr.ValidationError{Message: "Please provide supplierId, rating, and customerName"}
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return nil, apperr.Validationf("Rating must be a number between %d and %d", MinRating, MaxRating)
	}
	if in.OrderID != "" {
		if _, err := uuid.Parse(in.OrderID); err != nil {
			return nil, apperr.Validationf("Invalid order ID: %s", in.OrderID)
		}
	}

	sup, err := s.suppliers.GetByID(ctx, in.SupplierID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, &apperr.NotFoundError{Entity: "supplier", ID: in.SupplierID, Message: "Supplier not found"}
		}
		return nil, errors.Wrap(err, "get supplier")
	}

	images := in.Images
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	now := s.now()
	r := &Review{
		ID:            uuid.New().String(),
		SupplierID:    sup.ID,
		OrderID:       in.OrderID,
		CustomerName:  in.CustomerName,
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		Rating:        in.Rating,
		Text:          strings.TrimSpace(in.Text),
		Images:        images,
		Visible:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, &apperr.PersistenceError{Op: "create review", Err: err}
	}

	if _, err := s.ratings.AddRating(ctx, sup.ID, r.Rating); err != nil {
		zctx.From(ctx).Warn("Store rating update failed",
			zap.String("review_id", r.ID),
			zap.String("supplier_id", sup.ID),
			zap.Error(err),
		)
	}

	s.notifier.Emit(ctx, notification.Notice{
		SupplierID:  sup.ID,
		Type:        notification.TypeReview,
		Title:       "New Review",
		Message:     fmt.Sprintf("%s left a %d-star review.", r.CustomerName, r.Rating),
		Icon:        notification.IconReview,
		RelatedID:   r.ID,
		RelatedType: "Review",
		Metadata:    map[string]any{"rating": r.Rating, "customerName": r.CustomerName},
	})
	return r, nil
}

// Reply sets the supplier's answer to a review, replacing any earlier one.
// An empty companyName falls back to the supplier name.
func (s *Service) Reply(ctx context.Context, supplierID, supplierName, id, companyName, text string) (*Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &apperr.ValidationError{Message: `Please provide reply text (use "replyText" or "message" field)`}
	}
	current, err := s.repo.Get(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}

	if companyName = strings.TrimSpace(companyName); companyName == "" {
		companyName = supplierName
	}
	now := s.now()
	reply := Reply{CompanyName: companyName, Text: text, CreatedAt: now, UpdatedAt: now}
	if current.Reply != nil {
		reply.CreatedAt = current.Reply.CreatedAt
	}

	r, err := s.repo.SetReply(ctx, supplierID, id, reply)
	if err != nil {
		return nil, notFound(err, id)
	}
	return r, nil
}

// Delete hides a review from listings and aggregates.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	if err := s.repo.Hide(ctx, supplierID, id); err != nil {
		return notFound(err, id)
	}
	return nil
}

func notFound(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &apperr.NotFoundError{Entity: "review", ID: id, Message: "Review not found"}
	}
	return errors.Wrapf(err, "review %s", id)
}
