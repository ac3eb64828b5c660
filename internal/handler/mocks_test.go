package handler

import (
	"context"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/campaign"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/product"
	"github.com/xenking/instasupply/internal/domain/profile"
	"github.com/xenking/instasupply/internal/domain/review"
	"github.com/xenking/instasupply/internal/domain/store"
)

type mockOrders struct {
	placed     *order.PlaceOrderRequest
	placeActor order.Actor
	placeRes   *order.PlaceOrderResult
	placeErr   error

	statusArgs []string
	statusRes  *order.Order
	statusErr  error

	patch      order.DetailsPatch
	detailsRes *order.Order
	detailsErr error

	deleted   string
	deleteErr error

	getRes *order.Order
	getErr error

	listFilter order.Filter
	listRes    *order.ListResult
	listErr    error

	recentLimit int
	recentRes   []order.Order
}

func (m *mockOrders) PlaceOrder(_ context.Context, a order.Actor, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	m.placeActor = a
	m.placed = &req
	return m.placeRes, m.placeErr
}

func (m *mockOrders) UpdateStatus(_ context.Context, a order.Actor, id, status, note string) (*order.Order, error) {
	m.statusArgs = []string{a.Name, id, status, note}
	return m.statusRes, m.statusErr
}

func (m *mockOrders) UpdateDetails(_ context.Context, _, _ string, p order.DetailsPatch) (*order.Order, error) {
	m.patch = p
	return m.detailsRes, m.detailsErr
}

func (m *mockOrders) Delete(_ context.Context, _, id string) error {
	m.deleted = id
	return m.deleteErr
}

func (m *mockOrders) Get(context.Context, string, string) (*order.Order, error) {
	return m.getRes, m.getErr
}

func (m *mockOrders) List(_ context.Context, f order.Filter) (*order.ListResult, error) {
	m.listFilter = f
	return m.listRes, m.listErr
}

func (m *mockOrders) Recent(_ context.Context, _ string, limit int) ([]order.Order, error) {
	m.recentLimit = limit
	return m.recentRes, nil
}

type mockProducts struct {
	listFilter product.Filter
	listRes    *product.Page
	getRes     *product.Product
	getErr     error
	input      product.Input
	createRes  *product.Product
	createErr  error
}

func (m *mockProducts) List(_ context.Context, f product.Filter) (*product.Page, error) {
	m.listFilter = f
	return m.listRes, nil
}

func (m *mockProducts) Get(context.Context, string, string) (*product.Product, error) {
	return m.getRes, m.getErr
}

func (m *mockProducts) Create(_ context.Context, _ string, in product.Input) (*product.Product, error) {
	m.input = in
	return m.createRes, m.createErr
}

func (m *mockProducts) Update(_ context.Context, _, _ string, in product.Input) (*product.Product, error) {
	m.input = in
	return m.createRes, m.createErr
}

func (m *mockProducts) Delete(context.Context, string, string) error { return nil }

type mockNotifications struct {
	listFilter notification.Filter
	inbox      *notification.Inbox
	marked     string
	markRes    *notification.Notification
	markErr    error
	markAll    int64
}

func (m *mockNotifications) List(_ context.Context, f notification.Filter) (*notification.Inbox, error) {
	m.listFilter = f
	return m.inbox, nil
}

func (m *mockNotifications) MarkRead(_ context.Context, _, id string) (*notification.Notification, error) {
	m.marked = id
	return m.markRes, m.markErr
}

func (m *mockNotifications) MarkAllRead(context.Context, string) (int64, error) {
	return m.markAll, nil
}

func (m *mockNotifications) Delete(context.Context, string, string) error { return nil }

type mockAuth struct {
	supplier *auth.Supplier
	claims   *auth.Claims
	authErr  error

	registerErr error
	session     *auth.Session
	verifyErr   error
	loggedOut   *auth.Claims
}

func (m *mockAuth) Register(context.Context, auth.RegisterRequest) (*auth.Supplier, error) {
	return m.supplier, m.registerErr
}

func (m *mockAuth) RequestOTP(context.Context, string) error { return nil }

func (m *mockAuth) VerifyOTP(context.Context, string, string) (*auth.Session, error) {
	return m.session, m.verifyErr
}

func (m *mockAuth) ChangeEmail(_ context.Context, _, newEmail string) (*auth.Supplier, error) {
	return &auth.Supplier{Email: newEmail}, nil
}

func (m *mockAuth) Authenticate(context.Context, string) (*auth.Supplier, *auth.Claims, error) {
	return m.supplier, m.claims, m.authErr
}

func (m *mockAuth) Logout(_ context.Context, c *auth.Claims) error {
	m.loggedOut = c
	return nil
}

type mockReviews struct {
	listFilter review.Filter
	page       *review.Page
	summary    *review.Summary

	created   *review.CreateInput
	createRes *review.Review
	createErr error

	replyArgs []string
	replyRes  *review.Review
	replyErr  error

	deleted   string
	deleteErr error
}

func (m *mockReviews) List(_ context.Context, f review.Filter) (*review.Page, error) {
	m.listFilter = f
	return m.page, nil
}

func (m *mockReviews) Summary(context.Context, string) (*review.Summary, error) {
	return m.summary, nil
}

func (m *mockReviews) Create(_ context.Context, in review.CreateInput) (*review.Review, error) {
	m.created = &in
	return m.createRes, m.createErr
}

func (m *mockReviews) Reply(_ context.Context, supplierID, supplierName, id, companyName, text string) (*review.Review, error) {
	m.replyArgs = []string{supplierID, supplierName, id, companyName, text}
	return m.replyRes, m.replyErr
}

func (m *mockReviews) Delete(_ context.Context, _, id string) error {
	m.deleted = id
	return m.deleteErr
}

type mockCampaigns struct {
	listFilter campaign.Filter
	page       *campaign.Page

	getRes *campaign.Campaign
	getErr error

	input     *campaign.Input
	createRes *campaign.Campaign
	createErr error

	stats    *campaign.Stats
	insights *campaign.Insights

	metrics    []int64
	metricsRes *campaign.Campaign
	metricsErr error

	deleted string
}

func (m *mockCampaigns) List(_ context.Context, f campaign.Filter) (*campaign.Page, error) {
	m.listFilter = f
	return m.page, nil
}

func (m *mockCampaigns) Get(context.Context, string, string) (*campaign.Campaign, error) {
	return m.getRes, m.getErr
}

func (m *mockCampaigns) Create(_ context.Context, _ string, in campaign.Input) (*campaign.Campaign, error) {
	m.input = &in
	return m.createRes, m.createErr
}

func (m *mockCampaigns) Update(_ context.Context, _, _ string, in campaign.Input) (*campaign.Campaign, error) {
	m.input = &in
	return m.createRes, m.createErr
}

func (m *mockCampaigns) Stats(context.Context, string, string) (*campaign.Stats, error) {
	return m.stats, m.getErr
}

func (m *mockCampaigns) Insights(context.Context, string, string) (*campaign.Insights, error) {
	return m.insights, m.getErr
}

func (m *mockCampaigns) RecordMetrics(_ context.Context, _, _ string, impressions, clicks int64) (*campaign.Campaign, error) {
	m.metrics = []int64{impressions, clicks}
	return m.metricsRes, m.metricsErr
}

func (m *mockCampaigns) Delete(_ context.Context, _, id string) error {
	m.deleted = id
	return m.getErr
}

type mockStore struct {
	settings *store.Settings
	patch    *store.Patch
	rated    int
	err      error
}

func (m *mockStore) Settings(context.Context, string) (*store.Settings, error) {
	return m.settings, m.err
}

func (m *mockStore) UpdateSettings(_ context.Context, _ string, p store.Patch) (*store.Settings, error) {
	m.patch = &p
	return m.settings, m.err
}

func (m *mockStore) Rate(_ context.Context, _ string, rating int) (*store.Settings, error) {
	m.rated = rating
	return m.settings, m.err
}

type mockProfiles struct {
	supplier *auth.Supplier
	input    *profile.Input
	info     *profile.Info
	err      error
}

func (m *mockProfiles) Me(context.Context, string) (*auth.Supplier, error) {
	return m.supplier, m.err
}

func (m *mockProfiles) Update(_ context.Context, _ string, in profile.Input) (*auth.Supplier, error) {
	m.input = &in
	return m.supplier, m.err
}

func (m *mockProfiles) Info(context.Context, string) (*profile.Info, error) {
	return m.info, m.err
}
