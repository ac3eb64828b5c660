package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/review"
)

var errReviewNotFound = &apperr.NotFoundError{Entity: "review", Message: "Review not found"}

// looseInt accepts a JSON number or a numeric string. Anything else decodes
// to zero.
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.Atoi(string(b))
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseInt(v)
	return nil
}

type createReviewRequest struct {
	SupplierID    string   `json:"supplierId"`
	OrderID       string   `json:"orderId"`
	CustomerName  string   `json:"customerName"`
	CustomerEmail string   `json:"customerEmail"`
	Rating        looseInt `json:"rating"`
	Comment       string   `json:"comment"`
	ReviewText    string   `json:"reviewText"`
	Images        []string `json:"images"`
}

func (req createReviewRequest) text() string {
	if req.Comment != "" {
		return req.Comment
	}
	return req.ReviewText
}

type replyRequest struct {
	ReplyText   string `json:"replyText"`
	Message     string `json:"message"`
	CompanyName string `json:"companyName"`
}

type reviewResponse struct {
	ID            string        `json:"id"`
	SupplierID    string        `json:"supplier"`
	OrderID       string        `json:"order,omitempty"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	Rating        int           `json:"rating"`
	ReviewText    string        `json:"reviewText"`
	Images        []string      `json:"images"`
	Reply         *review.Reply `json:"reply,omitempty"`
	IsVisible     bool          `json:"isVisible"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type reviewEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Review  reviewResponse `json:"review"`
}

type reviewListResponse struct {
	Success            bool             `json:"success"`
	Count              int              `json:"count"`
	Total              int              `json:"total"`
	Page               int              `json:"page"`
	Pages              int              `json:"pages"`
	RatingDistribution map[int]int      `json:"ratingDistribution"`
	Reviews            []reviewResponse `json:"reviews"`
}

type reviewSummary struct {
	AverageRating      string      `json:"averageRating"`
	TotalReviews       int         `json:"totalReviews"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

type reviewSummaryResponse struct {
	Success bool          `json:"success"`
	Summary reviewSummary `json:"summary"`
}

func (h *Handler) domainToReview(rv *review.Review) reviewResponse {
	return reviewResponse{
		ID:            rv.ID,
		SupplierID:    rv.SupplierID,
		OrderID:       rv.OrderID,
		CustomerName:  rv.CustomerName,
		CustomerEmail: rv.CustomerEmail,
		Rating:        rv.Rating,
		ReviewText:    rv.Text,
		Images:        h.imageURLs(rv.Images),
		Reply:         rv.Reply,
		IsVisible:     rv.Visible,
		CreatedAt:     rv.CreatedAt,
		UpdatedAt:     rv.UpdatedAt,
	}
}

// reviewFilter reads the listing query: rating ("all" or 1-5), sortBy, page
// and limit.
func reviewFilter(r *http.Request) (review.Filter, error) {
	q := r.URL.Query()
	f := review.Filter{
		SupplierID: supplierID(r),
		Sort:       review.SortOrder(q.Get("sortBy")),
	}
	if raw := q.Get("rating"); raw != "" && raw != "all" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperr.Validationf("Invalid rating: %s", raw)
		}
		f.Rating = n
	}
	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

// ListReviews returns a page of the supplier's visible reviews with the
// rating distribution.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	f, err := reviewFilter(r)
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	page, err := h.reviews.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "Failed to fetch reviews")
		return
	}
	out := make([]reviewResponse, len(page.Reviews))
	for i := range page.Reviews {
		out[i] = h.domainToReview(&page.Reviews[i])
	}
	writeJSON(w, r, http.StatusOK, reviewListResponse{
		Success:            true,
		Count:              len(out),
		Total:              page.Total,
		Page:               page.Page,
		Pages:              pages(page.Total, page.Limit),
		RatingDistribution: page.Distribution,
		Reviews:            out,
	})
}

// ReviewSummary returns the average rating and distribution.
func (h *Handler) ReviewSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.reviews.Summary(r.Context(), supplierID(r))
	if err != nil {
		handleError(w, r, err, "Failed to fetch review summary")
		return
	}
	writeJSON(w, r, http.StatusOK, reviewSummaryResponse{
		Success: true,
		Summary: reviewSummary{
			AverageRating:      s.Average.StringFixed(1),
			TotalReviews:       s.Total,
			RatingDistribution: s.Distribution,
		},
	})
}

// CreateReview stores a customer review. It needs no session.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	rv, err := h.reviews.Create(r.Context(), review.CreateInput{
		SupplierID:    req.SupplierID,
		OrderID:       req.OrderID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Rating:        int(req.Rating),
		Text:          req.text(),
		Images:        req.Images,
	})
	if err != nil {
		handleError(w, r, err, "Failed to create review. Please check your information and try again.")
		return
	}
	writeJSON(w, r, http.StatusCreated, reviewEnvelope{
		Success: true,
		Message: "Review created successfully",
		Review:  h.domainToReview(rv),
	})
}

// ReplyToReview sets the supplier's public reply. The text may be sent as
// replyText or message.
func (h *Handler) ReplyToReview(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errReviewNotFound, "")
		return
	}
	text := req.ReplyText
	if text == "" {
		text = req.Message
	}
	a := actor(r)
	rv, err := h.reviews.Reply(r.Context(), a.SupplierID, a.Name, id, req.CompanyName, text)
	if err != nil {
		handleError(w, r, err, "Failed to add reply")
		return
	}
	writeJSON(w, r, http.StatusOK, reviewEnvelope{
		Success: true,
		Message: "Reply added successfully",
		Review:  h.domainToReview(rv),
	})
}

// DeleteReview hides a review.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errReviewNotFound, "")
		return
	}
	if err := h.reviews.Delete(r.Context(), supplierID(r), id); err != nil {
		handleError(w, r, err, "Failed to delete review")
		return
	}
	writeMessage(w, r, http.StatusOK, "Review deleted successfully")
}
