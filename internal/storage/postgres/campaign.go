package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/campaign"
)

const campaignColumns = `id, supplier_id, name, product_ids, daily_budget, total_spent, status,
	impressions, clicks, start_date, end_date, created_at, updated_at`

const (
	insertCampaignSQL = `INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getCampaignSQL = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND supplier_id = $2`

	updateCampaignSQL = `UPDATE campaigns SET name = $3, product_ids = $4, daily_budget = $5,
		status = $6, start_date = $7, end_date = $8, updated_at = $9
		WHERE id = $1 AND supplier_id = $2`

	campaignSummarySQL = `SELECT count(*) FILTER (WHERE status = $2), COALESCE(sum(total_spent), 0)
		FROM campaigns WHERE supplier_id = $1`

	// The daily row is written by the second CTE; data-modifying CTEs run
	// whether or not the outer query reads them.
	addCampaignMetricsSQL = `WITH c AS (
			UPDATE campaigns SET
				impressions = impressions + $3,
				clicks = clicks + $4,
				total_spent = total_spent + $5,
				updated_at = now()
			WHERE id = $1 AND supplier_id = $2
			RETURNING ` + campaignColumns + `
		), d AS (
			INSERT INTO campaign_daily_metrics (campaign_id, day, impressions, clicks)
			SELECT id, $6::date, $3, $4 FROM c
			ON CONFLICT (campaign_id, day) DO UPDATE SET
				impressions = campaign_daily_metrics.impressions + EXCLUDED.impressions,
				clicks = campaign_daily_metrics.clicks + EXCLUDED.clicks
		)
		SELECT ` + campaignColumns + ` FROM c`

	campaignDailySQL = `SELECT day, impressions, clicks FROM campaign_daily_metrics
		WHERE campaign_id = $1 AND day BETWEEN $2::date AND $3::date
		ORDER BY day`

	deleteCampaignSQL = `DELETE FROM campaigns WHERE id = $1 AND supplier_id = $2`
)

var _ campaign.Repository = (*CampaignRepository)(nil)

// CampaignRepository implements campaign.Repository backed by PostgreSQL.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a CampaignRepository that uses the given pool.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// List returns one page of campaigns newest first and the number of matches.
func (r *CampaignRepository) List(ctx context.Context, f campaign.Filter) ([]campaign.Campaign, int, error) {
	var w where
	w.add("supplier_id = " + w.arg(f.SupplierID))
	if f.Status != "" {
		w.add("status = " + w.arg(string(f.Status)))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM campaigns"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting campaigns: %w", err)
	}

	q := "SELECT " + campaignColumns + " FROM campaigns" + w.String() +
		" ORDER BY created_at DESC" +
		" LIMIT " + w.arg(f.Limit) + " OFFSET " + w.arg(f.Offset())
	rows, err := r.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing campaigns: %w", err)
	}
	campaigns, err := pgx.CollectRows(rows, scanCampaign)
	if err != nil {
		return nil, 0, fmt.Errorf("listing campaigns: %w", err)
	}
	return campaigns, total, nil
}

// Summary counts active campaigns and sums the spend of all of them.
func (r *CampaignRepository) Summary(ctx context.Context, supplierID string) (campaign.Summary, error) {
	var s campaign.Summary
	err := r.pool.QueryRow(ctx, campaignSummarySQL, supplierID, string(campaign.StatusActive)).
		Scan(&s.Active, &s.TotalSpent)
	if err != nil {
		return s, fmt.Errorf("summarizing campaigns: %w", err)
	}
	return s, nil
}

// Get returns one campaign of the supplier.
func (r *CampaignRepository) Get(ctx context.Context, supplierID, id string) (*campaign.Campaign, error) {
	rows, err := r.pool.Query(ctx, getCampaignSQL, id, supplierID)
	if err != nil {
		return nil, fmt.Errorf("getting campaign %q: %w", id, err)
	}
	return collectCampaign(rows, id)
}

// Create inserts a campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	_, err := r.pool.Exec(ctx, insertCampaignSQL,
		c.ID, c.SupplierID, c.Name, nonNil(c.ProductIDs), c.DailyBudget, c.TotalSpent, string(c.Status),
		c.Impressions, c.Clicks, c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating campaign: %w", err)
	}
	return nil
}

// Update writes the editable fields. Counters and spend are left alone.
func (r *CampaignRepository) Update(ctx context.Context, c *campaign.Campaign) error {
	tag, err := r.pool.Exec(ctx, updateCampaignSQL,
		c.ID, c.SupplierID, c.Name, nonNil(c.ProductIDs), c.DailyBudget, string(c.Status),
		c.StartDate, c.EndDate, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating campaign %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// AddMetrics increments the counters, the spend and the day's counters.
func (r *CampaignRepository) AddMetrics(ctx context.Context, supplierID, id string, m campaign.Metrics) (*campaign.Campaign, error) {
	rows, err := r.pool.Query(ctx, addCampaignMetricsSQL, id, supplierID, m.Impressions, m.Clicks, m.Spend, m.Day)
	if err != nil {
		return nil, fmt.Errorf("recording metrics of %q: %w", id, err)
	}
	return collectCampaign(rows, id)
}

// Daily returns the per-day counters in [from, to].
func (r *CampaignRepository) Daily(ctx context.Context, id string, from, to time.Time) ([]campaign.DailyMetrics, error) {
	rows, err := r.pool.Query(ctx, campaignDailySQL, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily metrics of %q: %w", id, err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (campaign.DailyMetrics, error) {
		var d campaign.DailyMetrics
		err := row.Scan(&d.Day, &d.Impressions, &d.Clicks)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("daily metrics of %q: %w", id, err)
	}
	return days, nil
}

// Delete removes a campaign; its daily counters cascade.
func (r *CampaignRepository) Delete(ctx context.Context, supplierID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCampaignSQL, id, supplierID)
	if err != nil {
		return fmt.Errorf("deleting campaign %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func collectCampaign(rows pgx.Rows, id string) (*campaign.Campaign, error) {
	c, err := pgx.CollectExactlyOneRow(rows, scanCampaign)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, campaign.ErrNotFound
		}
		return nil, fmt.Errorf("reading campaign %q: %w", id, err)
	}
	return &c, nil
}

func scanCampaign(row pgx.CollectableRow) (campaign.Campaign, error) {
	var (
		c      campaign.Campaign
		status string
	)
	err := row.Scan(&c.ID, &c.SupplierID, &c.Name, &c.ProductIDs, &c.DailyBudget, &c.TotalSpent, &status,
		&c.Impressions, &c.Clicks, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	c.Status = campaign.Status(status)
	return c, err
}
