package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/campaign"
	"github.com/xenking/instasupply/internal/domain/product"
)

const testCampaign = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func sampleCampaign() *campaign.Campaign {
	return &campaign.Campaign{
		ID:          testCampaign,
		SupplierID:  testSupplier,
		Name:        "Spring Sale",
		ProductIDs:  []string{testProduct},
		DailyBudget: decimal.RequireFromString("20.00"),
		TotalSpent:  decimal.RequireFromString("2.50"),
		Status:      campaign.StatusActive,
		Impressions: 400,
		Clicks:      10,
		StartDate:   testNow,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
		Products: []product.Product{{
			ID:       testProduct,
			Name:     "Portland Cement",
			Category: product.Category("Cement"),
			Image:    "img/cement.png",
			Price:    decimal.RequireFromString("17.15"),
		}},
	}
}

// --- Campaigns ---

func TestCreateCampaign(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.createRes = sampleCampaign()

	rec := e.do(http.MethodPost, "/api/campaigns", `{
		"name": "Spring Sale",
		"products": ["`+testProduct+`", {"productId": "`+testOrder+`"}],
		"dailyBudget": 20,
		"startDate": "2025-03-01",
		"endDate": "2025-03-31T00:00:00Z"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	in := e.campaigns.input
	require.NotNil(t, in)
	require.NotNil(t, in.Name)
	assert.Equal(t, "Spring Sale", *in.Name)
	assert.Equal(t, []string{testProduct, testOrder}, in.ProductIDs)
	require.NotNil(t, in.DailyBudget)
	assert.True(t, in.DailyBudget.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, in.StartDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *in.StartDate)
	require.NotNil(t, in.EndDate)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *in.EndDate)
	assert.False(t, in.ClearEndDate)

	body := decodeBody(t, rec)
	assert.Equal(t, "Campaign created successfully", body["message"])
	c := body["campaign"].(map[string]any)
	assert.Equal(t, 20.0, c["dailyBudget"])
	assert.Equal(t, 2.5, c["totalBudgetSpent"])
	assert.Equal(t, 2.5, c["ctr"])
	p := c["products"].([]any)[0].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/img/cement.png", p["image"])
	assert.Equal(t, 17.15, p["price"])
}

func TestCreateCampaign_BadDate(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/api/campaigns", `{"name":"x","endDate":"next week"}`)
	requireError(t, rec, http.StatusBadRequest, "Invalid endDate: next week")
	assert.Nil(t, e.campaigns.input)
}

func TestUpdateCampaign_NullEndDateClears(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.createRes = sampleCampaign()

	rec := e.do(http.MethodPut, "/api/campaigns/"+testCampaign, `{"status":"Paused","endDate":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	in := e.campaigns.input
	require.NotNil(t, in)
	assert.True(t, in.ClearEndDate)
	assert.Nil(t, in.EndDate)
	assert.Nil(t, in.ProductIDs)
	require.NotNil(t, in.Status)
	assert.Equal(t, campaign.StatusPaused, *in.Status)
}

func TestUpdateCampaign_OmittedEndDateKept(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.createRes = sampleCampaign()

	rec := e.do(http.MethodPut, "/api/campaigns/"+testCampaign, `{"dailyBudget":"35.50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, e.campaigns.input.ClearEndDate)
	assert.Nil(t, e.campaigns.input.EndDate)
	assert.True(t, e.campaigns.input.DailyBudget.Equal(decimal.RequireFromString("35.50")))
}

func TestListCampaigns(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.page = &campaign.Page{
		Campaigns: []campaign.Campaign{*sampleCampaign()},
		Total:     1,
		Page:      1,
		Limit:     20,
		Summary:   campaign.Summary{Active: 1, TotalSpent: decimal.RequireFromString("2.50")},
	}

	rec := e.do(http.MethodGet, "/api/campaigns?status=Active", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, campaign.StatusActive, e.campaigns.listFilter.Status)

	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["activeCampaigns"])
	assert.Equal(t, 2.5, summary["totalBudgetSpent"])
	assert.Len(t, body["campaigns"], 1)
}

func TestCampaignStats(t *testing.T) {
	e := newTestEnv(t)
	c := sampleCampaign()
	e.campaigns.stats = &campaign.Stats{
		DailyBudget: c.DailyBudget,
		TotalSpent:  c.TotalSpent,
		Impressions: c.Impressions,
		Clicks:      c.Clicks,
		CTR:         c.CTR(),
		CPC:         c.CPC(),
		Status:      c.Status,
	}

	rec := e.do(http.MethodGet, "/api/campaigns/"+testCampaign+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeBody(t, rec)["stats"].(map[string]any)
	assert.Equal(t, 2.5, st["ctr"])
	assert.Equal(t, 0.25, st["cpc"])
	assert.Equal(t, "Active", st["status"])
}

func TestCampaignInsights(t *testing.T) {
	e := newTestEnv(t)
	c := sampleCampaign()
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	e.campaigns.insights = &campaign.Insights{
		Campaign: c,
		Overall:  campaign.Stats{Impressions: 400, Clicks: 10, CTR: c.CTR(), CPC: c.CPC(), TotalSpent: c.TotalSpent},
		Daily:    []campaign.DailyMetrics{{Day: monday, Impressions: 120, Clicks: 4}},
		Products: []campaign.ProductPerformance{{
			Product:     c.Products[0],
			Impressions: 400,
			Clicks:      10,
			CTR:         decimal.RequireFromString("2.50"),
		}},
		Recommendations: []campaign.Recommendation{{Type: "add_products", Icon: "cart", Message: "Add more"}},
	}

	rec := e.do(http.MethodGet, "/api/campaigns/"+testCampaign+"/insights", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)

	overall := body["overallPerformance"].(map[string]any)
	assert.Equal(t, 2.5, overall["totalSpend"])
	day := body["dailyPerformance"].([]any)[0].(map[string]any)
	assert.Equal(t, "Mon", day["label"])
	assert.Equal(t, "2025-03-03", day["date"])
	assert.Equal(t, float64(120), day["impressions"])
	perf := body["productPerformance"].([]any)[0].(map[string]any)
	assert.Equal(t, "Cement", perf["product"].(map[string]any)["category"])
	assert.Equal(t, "add_products", body["recommendations"].([]any)[0].(map[string]any)["type"])
}

func TestRecordCampaignMetrics(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.metricsRes = sampleCampaign()

	rec := e.do(http.MethodPut, "/api/campaigns/"+testCampaign+"/metrics", `{"impressions":100,"clicks":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{100, 4}, e.campaigns.metrics)
	assert.Equal(t, "Campaign metrics updated successfully", decodeBody(t, rec)["message"])
}

func TestCampaign_NotFound(t *testing.T) {
	e := newTestEnv(t)
	e.campaigns.getErr = &apperr.NotFoundError{Entity: "campaign", Message: "Campaign not found"}

	for _, path := range []string{
		"/api/campaigns/" + testCampaign,
		"/api/campaigns/" + testCampaign + "/stats",
		"/api/campaigns/" + testCampaign + "/insights",
		"/api/campaigns/nope",
	} {
		rec := e.do(http.MethodGet, path, "")
		requireError(t, rec, http.StatusNotFound, "Campaign not found")
	}

	rec := e.do(http.MethodDelete, "/api/campaigns/"+testCampaign, "")
	requireError(t, rec, http.StatusNotFound, "Campaign not found")
}
