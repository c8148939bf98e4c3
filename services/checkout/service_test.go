package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/services/enrollment"
	"github.com/sahilchouksey/coursekart/services/razorpay"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

// ---- fakes ----

type fakeCatalog struct {
	courses map[uint]*model.Course
}

func (f *fakeCatalog) GetPublishedCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	course, ok := f.courses[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

type fakeGateway struct {
	calls    int
	failWith error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_fake%d", f.calls),
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_fake" }

type fakePayments struct {
	nextID  uint
	byOrder map[string]*model.CoursePayment
}

func newFakePayments() *fakePayments {
	return &fakePayments{byOrder: map[string]*model.CoursePayment{}}
}

func (f *fakePayments) CreatePending(ctx context.Context, payment *model.CoursePayment) error {
	f.nextID++
	payment.ID = f.nextID
	payment.Status = model.PaymentStatusPending
	f.byOrder[payment.RazorpayOrderID] = payment
	return nil
}

func (f *fakePayments) GetByOrderID(ctx context.Context, orderID string) (*model.CoursePayment, error) {
	payment, ok := f.byOrder[orderID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (f *fakePayments) find(id uint) *model.CoursePayment {
	for _, payment := range f.byOrder {
		if payment.ID == id {
			return payment
		}
	}
	return nil
}

func (f *fakePayments) MarkCompleted(ctx context.Context, id uint, gatewayPaymentID string) error {
	payment := f.find(id)
	if payment == nil {
		return ErrPaymentNotFound
	}
	payment.RazorpayPaymentID = gatewayPaymentID
	payment.Status = model.PaymentStatusCompleted
	return nil
}

func (f *fakePayments) MarkGrantPending(ctx context.Context, id uint, gatewayPaymentID string) error {
	payment := f.find(id)
	if payment == nil {
		return ErrPaymentNotFound
	}
	payment.RazorpayPaymentID = gatewayPaymentID
	payment.Status = model.PaymentStatusGrantPending
	return nil
}

func (f *fakePayments) ListGrantPending(ctx context.Context, limit int) ([]model.CoursePayment, error) {
	var parked []model.CoursePayment
	for _, payment := range f.byOrder {
		if payment.Status == model.PaymentStatusGrantPending {
			parked = append(parked, *payment)
		}
		if len(parked) == limit {
			break
		}
	}
	return parked, nil
}

type fakeEnrollments struct {
	rows        map[string]*model.Enrollment
	createCalls int
	failCreates int // fail this many Create calls before recovering
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{rows: map[string]*model.Enrollment{}}
}

func (f *fakeEnrollments) Create(ctx context.Context, userID, courseID uint, paymentID string) (*model.Enrollment, error) {
	f.createCalls++
	if f.failCreates > 0 {
		f.failCreates--
		return nil, errors.New("database unavailable")
	}
	key := model.EnrollmentKey(userID, courseID)
	record := &model.Enrollment{
		ID:        key,
		UserID:    userID,
		CourseID:  courseID,
		Status:    model.EnrollmentStatusActive,
		PaymentID: paymentID,
	}
	f.rows[key] = record
	return record, nil
}

func (f *fakeEnrollments) Get(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	record, ok := f.rows[model.EnrollmentKey(userID, courseID)]
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	return record, nil
}

func (f *fakeEnrollments) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var records []model.Enrollment
	for _, record := range f.rows {
		if record.UserID == userID {
			records = append(records, *record)
		}
	}
	return records, nil
}

type fakeLocks struct {
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: map[string]bool{}}
}

func (f *fakeLocks) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocks) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

type fakeEvents struct {
	seen      map[string]bool
	processed map[string]bool
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{seen: map[string]bool{}, processed: map[string]bool{}}
}

func (f *fakeEvents) Record(ctx context.Context, eventID, eventType string, payload []byte) (bool, error) {
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeEvents) MarkProcessed(ctx context.Context, eventID string) error {
	f.processed[eventID] = true
	return nil
}

func (f *fakeEvents) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ---- harness ----

type harness struct {
	service     *Service
	catalog     *fakeCatalog
	gateway     *fakeGateway
	payments    *fakePayments
	enrollments *fakeEnrollments
	events      *fakeEvents
	locks       *fakeLocks
}

func newHarness() *harness {
	discounted := 499.0
	catalog := &fakeCatalog{courses: map[uint]*model.Course{
		1: {ID: 1, Title: "Paid Course", Price: 1999, Currency: "INR", Published: true},
		2: {ID: 2, Title: "Free Course", Price: 0, Currency: "INR", Published: true},
		3: {ID: 3, Title: "Discounted Course", Price: 1499, DiscountedPrice: &discounted, Currency: "INR", Published: true},
		4: {ID: 4, Title: "Broken Course", Price: -1, Currency: "INR", Published: true},
	}}
	gateway := &fakeGateway{}
	payments := newFakePayments()
	enrollments := newFakeEnrollments()
	events := newFakeEvents()
	locks := newFakeLocks()

	service := NewService(Config{
		Catalog:       catalog,
		Gateway:       gateway,
		Payments:      payments,
		Enrollments:   enrollments,
		Gate:          enrollment.NewGate(enrollments, nil),
		Events:        events,
		Locks:         locks,
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
	})

	return &harness{
		service:     service,
		catalog:     catalog,
		gateway:     gateway,
		payments:    payments,
		enrollments: enrollments,
		events:      events,
		locks:       locks,
	}
}

func signCallback(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// startPaidPurchase runs Purchase for the paid course and returns the order id
func startPaidPurchase(t *testing.T, h *harness, userID uint) string {
	t.Helper()
	result, err := h.service.Purchase(context.Background(), userID, 1)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if result.Enrolled {
		t.Fatal("paid purchase must not enroll before verification")
	}
	if result.OrderID == "" {
		t.Fatal("paid purchase returned no order id")
	}
	return result.OrderID
}

// ---- purchase ----

func TestPurchaseFreeCourseEnrollsWithoutGateway(t *testing.T) {
	h := newHarness()

	result, err := h.service.Purchase(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if !result.Enrolled || !result.Free {
		t.Errorf("expected immediate free enrollment, got %+v", result)
	}
	if h.gateway.calls != 0 {
		t.Errorf("free purchase called the gateway %d times", h.gateway.calls)
	}

	record, err := h.enrollments.Get(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("enrollment not created: %v", err)
	}
	if record.PaymentID != model.PaymentIDFree {
		t.Errorf("expected payment id %q, got %q", model.PaymentIDFree, record.PaymentID)
	}
}

func TestPurchasePaidCourseCreatesOrderNotEnrollment(t *testing.T) {
	h := newHarness()

	result, err := h.service.Purchase(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if result.Enrolled {
		t.Error("paid purchase enrolled before payment")
	}
	if result.Amount != 1999 {
		t.Errorf("expected amount 1999, got %v", result.Amount)
	}
	if result.GatewayKeyID != "rzp_test_fake" {
		t.Errorf("unexpected gateway key id %q", result.GatewayKeyID)
	}
	if h.gateway.calls != 1 {
		t.Errorf("expected 1 gateway call, got %d", h.gateway.calls)
	}

	payment, err := h.payments.GetByOrderID(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("pending payment not recorded: %v", err)
	}
	if payment.Status != model.PaymentStatusPending {
		t.Errorf("expected pending status, got %q", payment.Status)
	}
	if payment.UserID != 7 || payment.CourseID != 1 {
		t.Errorf("pending payment bound to wrong pair: user %d course %d", payment.UserID, payment.CourseID)
	}

	if _, err := h.enrollments.Get(context.Background(), 7, 1); !errors.Is(err, enrollment.ErrNotFound) {
		t.Error("enrollment must not exist before verification")
	}
}

func TestPurchaseUsesDiscountedPrice(t *testing.T) {
	h := newHarness()

	result, err := h.service.Purchase(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if result.Amount != 499 {
		t.Errorf("expected discounted amount 499, got %v", result.Amount)
	}
}

func TestPurchaseUnknownCourse(t *testing.T) {
	h := newHarness()

	if _, err := h.service.Purchase(context.Background(), 7, 999); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestPurchaseInvalidPricing(t *testing.T) {
	h := newHarness()

	if _, err := h.service.Purchase(context.Background(), 7, 4); !errors.Is(err, ErrInvalidPricing) {
		t.Errorf("expected ErrInvalidPricing, got %v", err)
	}
	if h.gateway.calls != 0 {
		t.Error("invalid pricing must not reach the gateway")
	}
}

func TestPurchaseGatewayDownCommitsNothing(t *testing.T) {
	h := newHarness()
	h.gateway.failWith = razorpay.ErrGatewayUnavailable

	if _, err := h.service.Purchase(context.Background(), 7, 1); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if len(h.payments.byOrder) != 0 {
		t.Error("failed order creation left a payment row behind")
	}
	if len(h.enrollments.rows) != 0 {
		t.Error("failed order creation left an enrollment behind")
	}
}

func TestPurchaseBlockedWhileCheckoutInFlight(t *testing.T) {
	h := newHarness()
	startPaidPurchase(t, h, 7)

	if _, err := h.service.Purchase(context.Background(), 7, 1); !errors.Is(err, ErrPurchaseInFlight) {
		t.Fatalf("expected ErrPurchaseInFlight, got %v", err)
	}

	// A different buyer is not affected.
	if _, err := h.service.Purchase(context.Background(), 8, 1); err != nil {
		t.Fatalf("unrelated buyer blocked: %v", err)
	}
}

// ---- verification ----

func TestConfirmPaymentHappyPath(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	result, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: signCallback(orderID, "pay_real"),
	})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !result.Enrolled || result.CourseID != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	record, err := h.enrollments.Get(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("enrollment missing after verification: %v", err)
	}
	if record.PaymentID != "pay_real" {
		t.Errorf("expected payment id pay_real, got %q", record.PaymentID)
	}

	payment, _ := h.payments.GetByOrderID(context.Background(), orderID)
	if payment.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed payment, got %q", payment.Status)
	}
}

func TestConfirmPaymentRejectsTamperedSignature(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	sig := []byte(signCallback(orderID, "pay_real"))
	sig[0] ^= 0x01

	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: string(sig),
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}

	if len(h.enrollments.rows) != 0 {
		t.Error("tampered callback produced an enrollment")
	}
	payment, _ := h.payments.GetByOrderID(context.Background(), orderID)
	if payment.Status != model.PaymentStatusPending {
		t.Errorf("tampered callback changed payment status to %q", payment.Status)
	}
}

func TestPurchaseRetryAfterFailedVerification(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	sig := []byte(signCallback(orderID, "pay_real"))
	sig[0] ^= 0x01

	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: string(sig),
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if len(h.locks.held) != 0 {
		t.Fatal("rejected callback left the purchase lock held")
	}

	// The buyer starts over with a fresh order instead of waiting out the
	// lock TTL.
	result, err := h.service.Purchase(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("retry after failed verification blocked: %v", err)
	}
	if result.OrderID == "" || result.OrderID == orderID {
		t.Errorf("retry did not create a fresh order, got %q", result.OrderID)
	}
}

func TestConfirmPaymentReleasesLockOnSuccess(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	if _, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: signCallback(orderID, "pay_real"),
	}); err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if len(h.locks.held) != 0 {
		t.Error("completed purchase left the lock held")
	}
}

func TestConfirmPaymentRejectsSignatureForOtherOrder(t *testing.T) {
	h := newHarness()
	orderA := startPaidPurchase(t, h, 7)
	orderB := startPaidPurchase(t, h, 8)

	// A signature valid for order A must not confirm order B.
	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderB,
		PaymentID: "pay_real",
		Signature: signCallback(orderA, "pay_real"),
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if len(h.enrollments.rows) != 0 {
		t.Error("cross-order signature produced an enrollment")
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	h := newHarness()

	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   "order_never_created",
		PaymentID: "pay_real",
		Signature: signCallback("order_never_created", "pay_real"),
	})
	if !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestConfirmPaymentMissingFields(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	cases := []Callback{
		{PaymentID: "pay_real", Signature: "sig"},
		{OrderID: orderID, Signature: "sig"},
		{OrderID: orderID, PaymentID: "pay_real"},
	}
	for i, cb := range cases {
		if _, err := h.service.ConfirmPayment(context.Background(), cb); !errors.Is(err, ErrVerificationFailed) {
			t.Errorf("case %d: expected ErrVerificationFailed, got %v", i, err)
		}
	}
}

func TestConfirmPaymentReplayConvergesOnOneEnrollment(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	cb := Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: signCallback(orderID, "pay_real"),
	}

	for i := 0; i < 3; i++ {
		result, err := h.service.ConfirmPayment(context.Background(), cb)
		if err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
		if !result.Enrolled {
			t.Fatalf("replay %d reported not enrolled", i)
		}
	}

	if len(h.enrollments.rows) != 1 {
		t.Errorf("expected exactly 1 enrollment row, got %d", len(h.enrollments.rows))
	}
}

// ---- grant failure and reconciliation ----

func TestConfirmPaymentParksGrantWhenWriteFails(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)
	h.enrollments.failCreates = 1

	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: signCallback(orderID, "pay_real"),
	})
	if !errors.Is(err, ErrGrantPending) {
		t.Fatalf("expected ErrGrantPending, got %v", err)
	}

	payment, _ := h.payments.GetByOrderID(context.Background(), orderID)
	if payment.Status != model.PaymentStatusGrantPending {
		t.Fatalf("expected grant_pending payment, got %q", payment.Status)
	}
	if payment.RazorpayPaymentID != "pay_real" {
		t.Errorf("parked payment lost the gateway payment id: %q", payment.RazorpayPaymentID)
	}
}

func TestReconcileGrantPendingRetriesParkedGrants(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)
	h.enrollments.failCreates = 1

	_, err := h.service.ConfirmPayment(context.Background(), Callback{
		OrderID:   orderID,
		PaymentID: "pay_real",
		Signature: signCallback(orderID, "pay_real"),
	})
	if !errors.Is(err, ErrGrantPending) {
		t.Fatalf("expected ErrGrantPending, got %v", err)
	}

	granted, err := h.service.ReconcileGrantPending(context.Background())
	if err != nil {
		t.Fatalf("ReconcileGrantPending failed: %v", err)
	}
	if granted != 1 {
		t.Fatalf("expected 1 granted, got %d", granted)
	}

	record, err := h.enrollments.Get(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("enrollment missing after reconciliation: %v", err)
	}
	if record.PaymentID != "pay_real" {
		t.Errorf("expected payment id pay_real, got %q", record.PaymentID)
	}

	payment, _ := h.payments.GetByOrderID(context.Background(), orderID)
	if payment.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed payment after reconciliation, got %q", payment.Status)
	}
}

// ---- webhooks ----

func capturedWebhookBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q}}}}`,
		paymentID, orderID,
	))
}

func TestHandleWebhookGrantsOnCapture(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	body := capturedWebhookBody(orderID, "pay_hook")
	if err := h.service.HandleWebhook(context.Background(), body, signWebhook(body), "evt_1"); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	if _, err := h.enrollments.Get(context.Background(), 7, 1); err != nil {
		t.Fatalf("webhook did not grant enrollment: %v", err)
	}
	if !h.events.processed["evt_1"] {
		t.Error("event not marked processed")
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	body := capturedWebhookBody(orderID, "pay_hook")
	sig := []byte(signWebhook(body))
	sig[3] ^= 0x01

	err := h.service.HandleWebhook(context.Background(), body, string(sig), "evt_1")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if len(h.enrollments.rows) != 0 {
		t.Error("unsigned webhook produced an enrollment")
	}
}

func TestHandleWebhookDuplicateEventIsNoOp(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	body := capturedWebhookBody(orderID, "pay_hook")
	sig := signWebhook(body)

	if err := h.service.HandleWebhook(context.Background(), body, sig, "evt_dup"); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	creates := h.enrollments.createCalls

	if err := h.service.HandleWebhook(context.Background(), body, sig, "evt_dup"); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if h.enrollments.createCalls != creates {
		t.Error("redelivered event triggered another grant attempt")
	}
	if len(h.enrollments.rows) != 1 {
		t.Errorf("expected 1 enrollment row, got %d", len(h.enrollments.rows))
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	h := newHarness()
	orderID := startPaidPurchase(t, h, 7)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_hook","order_id":%q}}}}`,
		orderID,
	))
	if err := h.service.HandleWebhook(context.Background(), body, signWebhook(body), "evt_fail"); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}
	if len(h.enrollments.rows) != 0 {
		t.Error("non-capture event granted access")
	}
}

// ---- helpers ----

func TestToPaise(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{1999, 199900},
		{499.50, 49950},
		{0.01, 1},
		{1234.565, 123457}, // rounds, never truncates
	}
	for _, tc := range cases {
		if got := toPaise(tc.amount); got != tc.want {
			t.Errorf("toPaise(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}
