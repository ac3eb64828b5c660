package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/product"
)

// InsightDays is the number of days covered by the daily performance series.
const InsightDays = 7

// Thresholds behind the insight recommendations.
const (
	highCTRPercent     = 5
	fewProducts        = 5
	endingSoonInterval = 7 * 24 * time.Hour
)

var highCTR = decimal.NewFromInt(highCTRPercent)

// Validation messages shared by create and update.
var (
	errNameAndProducts = &apperr.ValidationError{Message: "Please provide campaign name and at least one product"}
	errBudget          = &apperr.ValidationError{Message: "Please provide a valid daily budget"}
	errProducts        = &apperr.ValidationError{Message: "Some products are invalid or do not belong to you"}
	errDates           = &apperr.ValidationError{Message: "End date must be after start date"}
)

// Products resolves the supplier's active products.
type Products interface {
	GetByIDs(ctx context.Context, supplierID string, ids []string) ([]product.Product, error)
}

// Input carries the writable fields of a campaign. Nil pointers keep the
// current value on update. ClearEndDate removes the end date.
type Input struct {
	Name         *string
	ProductIDs   []string
	DailyBudget  *decimal.Decimal
	Status       *Status
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

// Page is one page of a campaign listing.
type Page struct {
	Campaigns []Campaign
	Total     int
	Page      int
	Limit     int
	Summary   Summary
}

// Stats are the delivery figures of one campaign.
type Stats struct {
	DailyBudget decimal.Decimal
	TotalSpent  decimal.Decimal
	Impressions int64
	Clicks      int64
	CTR         decimal.Decimal
	CPC         decimal.Decimal
	Status      Status
}

// ProductPerformance is a product's share of the campaign traffic. Traffic is
// not tracked per product, so it is split evenly.
type ProductPerformance struct {
	Product     product.Product
	Impressions int64
	Clicks      int64
	CTR         decimal.Decimal
}

// Recommendation is a suggested next step for the supplier.
type Recommendation struct {
	Type    string
	Icon    string
	Message string
}

// Insights is the analysis view of one campaign.
type Insights struct {
	Campaign        *Campaign
	Overall         Stats
	Daily           []DailyMetrics
	Products        []ProductPerformance
	Recommendations []Recommendation
}

// Service implements campaign management and reporting.
type Service struct {
	repo     Repository
	products Products
	notifier notification.Emitter
	now      func() time.Time
}

// NewService creates a campaign Service.
func NewService(repo Repository, products Products, notifier notification.Emitter) *Service {
	return &Service{repo: repo, products: products, notifier: notifier, now: time.Now}
}

// List returns a page of campaigns newest first with the supplier summary.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Status == "All" {
		f.Status = ""
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validationf("Invalid campaign status. Valid statuses: %s", StatusList())
	}

	campaigns, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list campaigns")
	}
	summary, err := s.repo.Summary(ctx, f.SupplierID)
	if err != nil {
		return nil, errors.Wrap(err, "campaign summary")
	}
	ptrs := make([]*Campaign, len(campaigns))
	for i := range campaigns {
		ptrs[i] = &campaigns[i]
	}
	if err := s.populate(ctx, f.SupplierID, ptrs...); err != nil {
		return nil, err
	}
	return &Page{Campaigns: campaigns, Total: total, Page: f.Page, Limit: f.Limit, Summary: summary}, nil
}

// Get returns one campaign with its products.
func (s *Service) Get(ctx context.Context, supplierID, id string) (*Campaign, error) {
	c, err := s.repo.Get(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if err := s.populate(ctx, supplierID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create starts an Active campaign over active products of the supplier.
func (s *Service) Create(ctx context.Context, supplierID string, in Input) (*Campaign, error) {
	name := ""
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if name == "" || len(in.ProductIDs) == 0 {
		return nil, errNameAndProducts
	}
	if in.DailyBudget == nil || !in.DailyBudget.IsPositive() {
		return nil, errBudget
	}
	ids, err := s.resolveProducts(ctx, supplierID, in.ProductIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &Campaign{
		ID:          uuid.New().String(),
		SupplierID:  supplierID,
		Name:        name,
		ProductIDs:  ids,
		DailyBudget: *in.DailyBudget,
		TotalSpent:  decimal.Zero,
		Status:      StatusActive,
		StartDate:   now,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	if c.EndDate != nil && !c.EndDate.After(c.StartDate) {
		return nil, errDates
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, &apperr.PersistenceError{Op: "create campaign", Err: err}
	}
	if err := s.populate(ctx, supplierID, c); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notification.Notice{
		SupplierID:  supplierID,
		Type:        notification.TypeCampaign,
		Title:       "Campaign Launched",
		Message:     fmt.Sprintf("Your campaign %q is now live with a daily budget of $%s.", c.Name, c.DailyBudget.StringFixed(2)),
		Icon:        notification.IconCampaign,
		RelatedID:   c.ID,
		RelatedType: "Campaign",
		Metadata:    map[string]any{"productCount": len(c.ProductIDs)},
	})
	return c, nil
}

// Update changes the fields present in in. Moving a campaign to Completed
// notifies the supplier.
func (s *Service) Update(ctx context.Context, supplierID, id string, in Input) (*Campaign, error) {
	c, err := s.repo.Get(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	prev := c.Status

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errNameAndProducts
		}
		c.Name = name
	}
	if in.DailyBudget != nil {
		if !in.DailyBudget.IsPositive() {
			return nil, errBudget
		}
		c.DailyBudget = *in.DailyBudget
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validationf("Invalid campaign status. Valid statuses: %s", StatusList())
		}
		c.Status = *in.Status
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	switch {
	case in.ClearEndDate:
		c.EndDate = nil
	case in.EndDate != nil:
		c.EndDate = in.EndDate
	}
	if c.EndDate != nil && !c.EndDate.After(c.StartDate) {
		return nil, errDates
	}
	if in.ProductIDs != nil {
		if len(in.ProductIDs) == 0 {
			return nil, errNameAndProducts
		}
		if c.ProductIDs, err = s.resolveProducts(ctx, supplierID, in.ProductIDs); err != nil {
			return nil, err
		}
	}
	c.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(err, id)
		}
		return nil, &apperr.PersistenceError{Op: "update campaign", Err: err}
	}
	if err := s.populate(ctx, supplierID, c); err != nil {
		return nil, err
	}

	if c.Status == StatusCompleted && prev != StatusCompleted {
		s.notifier.Emit(ctx, notification.Notice{
			SupplierID:  supplierID,
			Type:        notification.TypeCampaign,
			Title:       "Campaign Completed",
			Message:     fmt.Sprintf("Your campaign %q has completed after spending $%s.", c.Name, c.TotalSpent.StringFixed(2)),
			Icon:        notification.IconCampaign,
			RelatedID:   c.ID,
			RelatedType: "Campaign",
			Metadata: map[string]any{
				"impressions": c.Impressions,
				"clicks":      c.Clicks,
			},
		})
	}
	return c, nil
}

// Stats returns the delivery figures of a campaign.
func (s *Service) Stats(ctx context.Context, supplierID, id string) (*Stats, error) {
	c, err := s.repo.Get(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	st := stats(c)
	return &st, nil
}

// Insights returns overall figures, the last InsightDays days of traffic,
// per-product shares and recommendations.
func (s *Service) Insights(ctx context.Context, supplierID, id string) (*Insights, error) {
	c, err := s.Get(ctx, supplierID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(InsightDays - 1))
	recorded, err := s.repo.Daily(ctx, c.ID, from, today)
	if err != nil {
		return nil, errors.Wrap(err, "campaign daily metrics")
	}
	byDay := make(map[time.Time]DailyMetrics, len(recorded))
	for _, d := range recorded {
		byDay[d.Day.UTC()] = d
	}
	daily := make([]DailyMetrics, InsightDays)
	for i := range daily {
		day := from.AddDate(0, 0, i)
		d := byDay[day]
		d.Day = day
		daily[i] = d
	}

	perProduct := make([]ProductPerformance, len(c.Products))
	if n := int64(len(c.Products)); n > 0 {
		imp, clk := c.Impressions/n, c.Clicks/n
		for i, p := range c.Products {
			perProduct[i] = ProductPerformance{
				Product:     p,
				Impressions: imp,
				Clicks:      clk,
				CTR:         ratio(decimal.NewFromInt(clk*100), imp),
			}
		}
	}

	overall := stats(c)
	return &Insights{
		Campaign:        c,
		Overall:         overall,
		Daily:           daily,
		Products:        perProduct,
		Recommendations: recommend(c, overall, now),
	}, nil
}

// RecordMetrics adds delivered impressions and clicks. Each click costs
// CostPerClick.
func (s *Service) RecordMetrics(ctx context.Context, supplierID, id string, impressions, clicks int64) (*Campaign, error) {
	if impressions < 0 || clicks < 0 {
		return nil, &apperr.ValidationError{Message: "Impressions and clicks must not be negative"}
	}
	c, err := s.repo.AddMetrics(ctx, supplierID, id, Metrics{
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       CostPerClick.Mul(decimal.NewFromInt(clicks)),
		Day:         s.now().UTC(),
	})
	if err != nil {
		return nil, notFound(err, id)
	}
	if err := s.populate(ctx, supplierID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a campaign and its daily counters.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	if err := s.repo.Delete(ctx, supplierID, id); err != nil {
		return notFound(err, id)
	}
	return nil
}

// resolveProducts checks that every id names an active product of the
// supplier and returns the ids without duplicates.
func (s *Service) resolveProducts(ctx context.Context, supplierID string, ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, err := uuid.Parse(id); err != nil {
			return nil, errProducts
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	found, err := s.products.GetByIDs(ctx, supplierID, uniq)
	if err != nil {
		return nil, errors.Wrap(err, "resolve campaign products")
	}
	if len(found) != len(uniq) {
		return nil, errProducts
	}
	return uniq, nil
}

// populate fills Products of each campaign with one catalog lookup.
func (s *Service) populate(ctx context.Context, supplierID string, cs ...*Campaign) error {
	var ids []string
	for _, c := range cs {
		ids = append(ids, c.ProductIDs...)
	}
	if len(ids) == 0 {
		return nil
	}
	found, err := s.products.GetByIDs(ctx, supplierID, ids)
	if err != nil {
		return errors.Wrap(err, "load campaign products")
	}
	byID := make(map[string]product.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, c := range cs {
		c.Products = make([]product.Product, 0, len(c.ProductIDs))
		for _, id := range c.ProductIDs {
			if p, ok := byID[id]; ok {
				c.Products = append(c.Products, p)
			}
		}
	}
	return nil
}

func stats(c *Campaign) Stats {
	return Stats{
		DailyBudget: c.DailyBudget,
		TotalSpent:  c.TotalSpent,
		Impressions: c.Impressions,
		Clicks:      c.Clicks,
		CTR:         c.CTR(),
		CPC:         c.CPC(),
		Status:      c.Status,
	}
}

func recommend(c *Campaign, overall Stats, now time.Time) []Recommendation {
	out := []Recommendation{}
	if overall.CTR.GreaterThan(highCTR) {
		out = append(out, Recommendation{
			Type: "increase_budget",
			Icon: "dollar",
			Message: fmt.Sprintf("Your campaign has a high CTR (%s%%). Consider increasing your daily budget to reach more customers.",
				overall.CTR.StringFixed(2)),
		})
	}
	if len(c.ProductIDs) < fewProducts {
		out = append(out, Recommendation{
			Type:    "add_products",
			Icon:    "cart",
			Message: "You could increase visibility by adding complementary products to this campaign.",
		})
	}
	if c.EndDate != nil && c.EndDate.Before(now.Add(endingSoonInterval)) {
		out = append(out, Recommendation{
			Type:    "extend_campaign",
			Icon:    "clock",
			Message: "This campaign is performing well. Consider extending it for continued sales growth.",
		})
	}
	return out
}

func notFound(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &apperr.NotFoundError{Entity: "campaign", ID: id, Message: "Campaign not found"}
	}
	return errors.Wrapf(err, "campaign %s", id)
}
