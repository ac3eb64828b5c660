package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/campaign"
	"github.com/xenking/instasupply/internal/domain/product"
)

var errCampaignNotFound = &apperr.NotFoundError{Entity: "campaign", Message: "Campaign not found"}

// productRefs accepts product ids either as plain strings or as
// {"productId": "..."} objects.
type productRefs []string

func (p *productRefs) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(productRefs, 0, len(raw))
	for _, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			out = append(out, id)
			continue
		}
		var obj struct {
			ProductID string `json:"productId"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, obj.ProductID)
	}
	*p = out
	return nil
}

type campaignRequest struct {
	Name        *string          `json:"name"`
	Products    productRefs      `json:"products"`
	DailyBudget *decimal.Decimal `json:"dailyBudget"`
	Status      *campaign.Status `json:"status"`
	StartDate   json.RawMessage  `json:"startDate"`
	EndDate     json.RawMessage  `json:"endDate"`
}

// input converts the request. An explicit null endDate clears the end date.
func (req campaignRequest) input() (campaign.Input, error) {
	in := campaign.Input{
		Name:        req.Name,
		ProductIDs:  req.Products,
		DailyBudget: req.DailyBudget,
		Status:      req.Status,
	}
	var err error
	if in.StartDate, err = parseDate("startDate", req.StartDate); err != nil {
		return in, err
	}
	if bytes.Equal(bytes.TrimSpace(req.EndDate), []byte("null")) {
		in.ClearEndDate = true
		return in, nil
	}
	if in.EndDate, err = parseDate("endDate", req.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

// parseDate reads an RFC 3339 timestamp or a YYYY-MM-DD date. Absent, null
// and empty values yield nil.
func parseDate(name string, raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperr.Validationf("Invalid %s", name)
	}
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validationf("Invalid %s: %s", name, s)
}

type metricsRequest struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

type campaignProduct struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Image    string           `json:"image"`
	Category product.Category `json:"category,omitempty"`
	Price    float64          `json:"price"`
}

type campaignResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Products         []campaignProduct `json:"products"`
	DailyBudget      float64           `json:"dailyBudget"`
	TotalBudgetSpent float64           `json:"totalBudgetSpent"`
	Status           campaign.Status   `json:"status"`
	Impressions      int64             `json:"impressions"`
	Clicks           int64             `json:"clicks"`
	CTR              float64           `json:"ctr"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          *time.Time        `json:"endDate"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

type campaignEnvelope struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Campaign campaignResponse `json:"campaign"`
}

type campaignSummary struct {
	ActiveCampaigns  int     `json:"activeCampaigns"`
	TotalBudgetSpent float64 `json:"totalBudgetSpent"`
}

type campaignListResponse struct {
	Success   bool               `json:"success"`
	Count     int                `json:"count"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Pages     int                `json:"pages"`
	Summary   campaignSummary    `json:"summary"`
	Campaigns []campaignResponse `json:"campaigns"`
}

type campaignStats struct {
	DailyBudget      float64         `json:"dailyBudget"`
	TotalBudgetSpent float64         `json:"totalBudgetSpent"`
	Impressions      int64           `json:"impressions"`
	Clicks           int64           `json:"clicks"`
	CTR              float64         `json:"ctr"`
	CPC              float64         `json:"cpc"`
	Status           campaign.Status `json:"status"`
}

type campaignStatsResponse struct {
	Success bool          `json:"success"`
	Stats   campaignStats `json:"stats"`
}

type insightsCampaign struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      campaign.Status   `json:"status"`
	StartDate   time.Time         `json:"startDate"`
	EndDate     *time.Time        `json:"endDate"`
	DailyBudget float64           `json:"dailyBudget"`
	Products    []campaignProduct `json:"products"`
}

type overallPerformance struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	TotalSpend  float64 `json:"totalSpend"`
}

type dailyPerformance struct {
	Label       string `json:"label"`
	Date        string `json:"date"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
}

type productPerformance struct {
	Product     campaignProduct `json:"product"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	CTR         float64         `json:"ctr"`
}

type recommendation struct {
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Message string `json:"message"`
}

type insightsResponse struct {
	Success            bool                 `json:"success"`
	Campaign           insightsCampaign     `json:"campaign"`
	OverallPerformance overallPerformance   `json:"overallPerformance"`
	DailyPerformance   []dailyPerformance   `json:"dailyPerformance"`
	ProductPerformance []productPerformance `json:"productPerformance"`
	Recommendations    []recommendation     `json:"recommendations"`
}

func (h *Handler) domainToCampaignProduct(p *product.Product) campaignProduct {
	return campaignProduct{
		ID:       p.ID,
		Name:     p.Name,
		Image:    h.imageURL(p.Image),
		Category: p.Category,
		Price:    p.Price.InexactFloat64(),
	}
}

func (h *Handler) campaignProducts(ps []product.Product) []campaignProduct {
	out := make([]campaignProduct, len(ps))
	for i := range ps {
		out[i] = h.domainToCampaignProduct(&ps[i])
	}
	return out
}

func (h *Handler) domainToCampaign(c *campaign.Campaign) campaignResponse {
	return campaignResponse{
		ID:               c.ID,
		Name:             c.Name,
		Products:         h.campaignProducts(c.Products),
		DailyBudget:      c.DailyBudget.InexactFloat64(),
		TotalBudgetSpent: c.TotalSpent.InexactFloat64(),
		Status:           c.Status,
		Impressions:      c.Impressions,
		Clicks:           c.Clicks,
		CTR:              c.CTR().InexactFloat64(),
		StartDate:        c.StartDate,
		EndDate:          c.EndDate,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ListCampaigns returns a page of campaigns with the supplier summary.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	f := campaign.Filter{
		SupplierID: supplierID(r),
		Status:     campaign.Status(r.URL.Query().Get("status")),
	}
	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		handleError(w, r, err, "")
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		handleError(w, r, err, "")
		return
	}
	page, err := h.campaigns.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "Failed to fetch campaigns")
		return
	}
	out := make([]campaignResponse, len(page.Campaigns))
	for i := range page.Campaigns {
		out[i] = h.domainToCampaign(&page.Campaigns[i])
	}
	writeJSON(w, r, http.StatusOK, campaignListResponse{
		Success: true,
		Count:   len(out),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   pages(page.Total, page.Limit),
		Summary: campaignSummary{
			ActiveCampaigns:  page.Summary.Active,
			TotalBudgetSpent: page.Summary.TotalSpent.InexactFloat64(),
		},
		Campaigns: out,
	})
}

// GetCampaign returns one campaign with its products.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	c, err := h.campaigns.Get(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to fetch campaign")
		return
	}
	writeJSON(w, r, http.StatusOK, campaignEnvelope{Success: true, Campaign: h.domainToCampaign(c)})
}

// CreateCampaign launches a campaign.
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	c, err := h.campaigns.Create(r.Context(), supplierID(r), in)
	if err != nil {
		handleError(w, r, err, "Failed to create campaign")
		return
	}
	writeJSON(w, r, http.StatusCreated, campaignEnvelope{
		Success:  true,
		Message:  "Campaign created successfully",
		Campaign: h.domainToCampaign(c),
	})
}

// UpdateCampaign changes the fields present in the request body.
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	c, err := h.campaigns.Update(r.Context(), supplierID(r), id, in)
	if err != nil {
		handleError(w, r, err, "Failed to update campaign")
		return
	}
	writeJSON(w, r, http.StatusOK, campaignEnvelope{
		Success:  true,
		Message:  "Campaign updated successfully",
		Campaign: h.domainToCampaign(c),
	})
}

// CampaignStats returns the delivery figures of a campaign.
func (h *Handler) CampaignStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	st, err := h.campaigns.Stats(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to fetch campaign stats")
		return
	}
	writeJSON(w, r, http.StatusOK, campaignStatsResponse{
		Success: true,
		Stats: campaignStats{
			DailyBudget:      st.DailyBudget.InexactFloat64(),
			TotalBudgetSpent: st.TotalSpent.InexactFloat64(),
			Impressions:      st.Impressions,
			Clicks:           st.Clicks,
			CTR:              st.CTR.InexactFloat64(),
			CPC:              st.CPC.InexactFloat64(),
			Status:           st.Status,
		},
	})
}

// CampaignInsights returns the detailed performance view of a campaign.
func (h *Handler) CampaignInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	in, err := h.campaigns.Insights(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to fetch campaign insights")
		return
	}
	c := in.Campaign
	daily := make([]dailyPerformance, len(in.Daily))
	for i, d := range in.Daily {
		daily[i] = dailyPerformance{
			Label:       d.Day.Weekday().String()[:3],
			Date:        d.Day.Format(time.DateOnly),
			Impressions: d.Impressions,
			Clicks:      d.Clicks,
		}
	}
	perProduct := make([]productPerformance, len(in.Products))
	for i := range in.Products {
		p := &in.Products[i]
		perProduct[i] = productPerformance{
			Product:     h.domainToCampaignProduct(&p.Product),
			Impressions: p.Impressions,
			Clicks:      p.Clicks,
			CTR:         p.CTR.InexactFloat64(),
		}
	}
	recs := make([]recommendation, len(in.Recommendations))
	for i, rec := range in.Recommendations {
		recs[i] = recommendation{Type: rec.Type, Icon: rec.Icon, Message: rec.Message}
	}
	writeJSON(w, r, http.StatusOK, insightsResponse{
		Success: true,
		Campaign: insightsCampaign{
			ID:          c.ID,
			Name:        c.Name,
			Status:      c.Status,
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
			DailyBudget: c.DailyBudget.InexactFloat64(),
			Products:    h.campaignProducts(c.Products),
		},
		OverallPerformance: overallPerformance{
			Impressions: in.Overall.Impressions,
			Clicks:      in.Overall.Clicks,
			CTR:         in.Overall.CTR.InexactFloat64(),
			CPC:         in.Overall.CPC.InexactFloat64(),
			TotalSpend:  in.Overall.TotalSpent.InexactFloat64(),
		},
		DailyPerformance:   daily,
		ProductPerformance: perProduct,
		Recommendations:    recs,
	})
}

// RecordCampaignMetrics adds delivered impressions and clicks to a campaign.
func (h *Handler) RecordCampaignMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	c, err := h.campaigns.RecordMetrics(r.Context(), supplierID(r), id, req.Impressions, req.Clicks)
	if err != nil {
		handleError(w, r, err, "Failed to update campaign metrics")
		return
	}
	writeJSON(w, r, http.StatusOK, campaignEnvelope{
		Success:  true,
		Message:  "Campaign metrics updated successfully",
		Campaign: h.domainToCampaign(c),
	})
}

// DeleteCampaign removes a campaign and its daily metrics.
func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errCampaignNotFound, "")
		return
	}
	if err := h.campaigns.Delete(r.Context(), supplierID(r), id); err != nil {
		handleError(w, r, err, "Failed to delete campaign")
		return
	}
	writeMessage(w, r, http.StatusOK, "Campaign deleted successfully")
}
