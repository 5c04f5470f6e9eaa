package orders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"order-handoff/internal/models"
)

type memRepo struct {
	orders  map[string]*models.Order
	reports []string
	nextID  int
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[string]*models.Order)}
}

func (m *memRepo) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	m.nextID++
	order := &models.Order{
		ID:             "order-1",
		ConsumerID:     req.ConsumerID,
		BusinessID:     req.BusinessID,
		Fulfillment:    req.Fulfillment,
		TotalAmount:    req.TotalAmount,
		CourierFee:     req.CourierFee,
		Status:         models.StatusCreated,
		RatingRequired: req.Fulfillment == models.FulfillmentDelivery,
		CreatedAt:      time.Now(),
	}
	if req.CourierID != nil {
		order.CourierID = sql.NullString{String: *req.CourierID, Valid: true}
	}
	m.orders[order.ID] = order
	return order, nil
}

func (m *memRepo) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) ListByBusiness(ctx context.Context, businessID string, page, limit int) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, o := range m.orders {
		if o.BusinessID == businessID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return models.ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func (m *memRepo) SetMilestoneVerified(ctx context.Context, orderID string, milestone models.PasscodeKind, at time.Time) error {
	o := m.orders[orderID]
	if milestone == models.PasscodePickup {
		o.PickupVerifiedAt = &at
	} else {
		o.DeliveryVerifiedAt = &at
	}
	return nil
}

func (m *memRepo) SaveIssueReport(ctx context.Context, orderID, reporterID, description string) error {
	m.reports = append(m.reports, description)
	return nil
}

type stubIssuer struct {
	issued []string
	actors []string
	err    error
}

func (s *stubIssuer) Issue(ctx context.Context, orderID, userID, role string) (*models.PasscodePair, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.issued = append(s.issued, orderID)
	s.actors = append(s.actors, userID+"/"+role)
	return &models.PasscodePair{
		OrderID:      orderID,
		PickupCode:   "AB12CD",
		DeliveryCode: "XY98ZW",
		ExpiresAt:    time.Now().Add(2 * time.Hour),
	}, nil
}

type stubReleases struct{ releases []models.PaymentRelease }

func (s *stubReleases) ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error) {
	return s.releases, nil
}

type stubAlerter struct {
	placed int
	issues int
}

func (s *stubAlerter) NewOrderPlaced(ctx context.Context, order *models.Order) { s.placed++ }

func (s *stubAlerter) IssueReported(ctx context.Context, order *models.Order, description string) {
	s.issues++
}

func deliveryRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		ConsumerID:  "consumer-1",
		BusinessID:  "business-1",
		Fulfillment: models.FulfillmentDelivery,
		TotalAmount: 25.00,
		CourierFee:  5.50,
	}
}

func TestCreateOrderIssuesPasscodes(t *testing.T) {
	repo := newMemRepo()
	issuer := &stubIssuer{}
	alerter := &stubAlerter{}
	svc := NewService(repo, issuer, &stubReleases{}, alerter)

	order, pair, err := svc.CreateOrder(context.Background(), deliveryRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Status != models.StatusAwaitingPickup {
		t.Fatalf("new order should await pickup verification, got %s", order.Status)
	}
	if !order.RatingRequired {
		t.Fatal("delivery orders collect a rating")
	}
	if pair.PickupCode == "" || pair.DeliveryCode == "" {
		t.Fatalf("plaintext pair must come back at placement: %+v", pair)
	}
	if len(issuer.issued) != 1 {
		t.Fatalf("issuer called %d times", len(issuer.issued))
	}
	if issuer.actors[0] != "consumer-1/"+models.RoleConsumer {
		t.Fatalf("issuance must run on behalf of the placing consumer, got %s", issuer.actors[0])
	}
	if alerter.placed != 1 {
		t.Fatalf("placement alert not sent")
	}
}

func TestCreateOrderPickupSkipsRating(t *testing.T) {
	req := deliveryRequest()
	req.Fulfillment = models.FulfillmentPickup
	req.CourierFee = 0
	svc := NewService(newMemRepo(), &stubIssuer{}, &stubReleases{}, nil)

	order, _, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.RatingRequired {
		t.Fatal("pickup orders never prompt for a rating")
	}
}

func TestCreateOrderIssuerFailure(t *testing.T) {
	svc := NewService(newMemRepo(), &stubIssuer{err: errors.New("rng exhausted")}, &stubReleases{}, nil)
	if _, _, err := svc.CreateOrder(context.Background(), deliveryRequest()); err == nil {
		t.Fatal("issuance failure must fail placement")
	}
}

func TestGetOrderDetailsHidesFromOutsiders(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubIssuer{}, &stubReleases{}, nil)
	svc.CreateOrder(context.Background(), deliveryRequest())

	for _, party := range []string{"consumer-1", "business-1"} {
		if _, err := svc.GetOrderDetails(context.Background(), "order-1", party); err != nil {
			t.Fatalf("%s should see the order: %v", party, err)
		}
	}

	_, err := svc.GetOrderDetails(context.Background(), "order-1", "stranger")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("outsider should get ErrNotFound, got %v", err)
	}
}

func TestGetOrderDetailsCourierIsParty(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubIssuer{}, &stubReleases{}, nil)
	req := deliveryRequest()
	courier := "courier-1"
	req.CourierID = &courier
	svc.CreateOrder(context.Background(), req)

	if _, err := svc.GetOrderDetails(context.Background(), "order-1", "courier-1"); err != nil {
		t.Fatalf("assigned courier should see the order: %v", err)
	}
}

func TestReportIssueDisputesAwaitingOrder(t *testing.T) {
	repo := newMemRepo()
	alerter := &stubAlerter{}
	svc := NewService(repo, &stubIssuer{}, &stubReleases{}, alerter)
	svc.CreateOrder(context.Background(), deliveryRequest())

	if err := svc.ReportIssue(context.Background(), "order-1", "consumer-1", "wrong items in the bag"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if got := repo.orders["order-1"].Status; got != models.StatusDisputed {
		t.Fatalf("order should be disputed, got %s", got)
	}
	if len(repo.reports) != 1 {
		t.Fatalf("report text not saved: %v", repo.reports)
	}
	if alerter.issues != 1 {
		t.Fatal("dispute alert not sent")
	}
}

func TestReportIssueRejectedOnTerminalOrder(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubIssuer{}, &stubReleases{}, nil)
	svc.CreateOrder(context.Background(), deliveryRequest())
	repo.orders["order-1"].Status = models.StatusCompleted

	err := svc.ReportIssue(context.Background(), "order-1", "consumer-1", "late complaint")
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("completed orders cannot be disputed, got %v", err)
	}
}

func TestGetVerificationStatus(t *testing.T) {
	repo := newMemRepo()
	releases := &stubReleases{releases: []models.PaymentRelease{
		{OrderID: "order-1", Milestone: models.PasscodePickup, Payee: "business-1", Amount: 19.50},
	}}
	svc := NewService(repo, &stubIssuer{}, releases, nil)
	svc.CreateOrder(context.Background(), deliveryRequest())

	at := time.Now()
	repo.orders["order-1"].PickupVerifiedAt = &at

	status, err := svc.GetVerificationStatus(context.Background(), "order-1", "consumer-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.PickupVerified || status.DeliveryVerified {
		t.Fatalf("milestone flags wrong: %+v", status)
	}
	if len(status.Releases) != 1 || status.Releases[0].Amount != 19.50 {
		t.Fatalf("release log missing: %+v", status.Releases)
	}
}

func TestListBusinessOrdersClampsPaging(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubIssuer{}, &stubReleases{}, nil)
	svc.CreateOrder(context.Background(), deliveryRequest())

	list, total, err := svc.ListBusinessOrders(context.Background(), "business-1", -3, 100000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("got %d/%d orders", len(list), total)
	}
}
