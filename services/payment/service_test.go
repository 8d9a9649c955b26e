package payment_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"pawsewa/apperrors"
	"pawsewa/config"
	"pawsewa/database/dbtest"
	"pawsewa/httpServices/esewa"
	careModel "pawsewa/models/care"
	"pawsewa/models/listing"
	orderModel "pawsewa/models/order"
	"pawsewa/models/payment"
	"pawsewa/models/pet"
	requestModel "pawsewa/models/service_request"
	subscriptionModel "pawsewa/models/subscription"
	"pawsewa/models/user"
	"pawsewa/services/events"
	"pawsewa/services/events/eventstest"
	paymentService "pawsewa/services/payment"
	"pawsewa/services/policy"
	requestService "pawsewa/services/service_request"
	paymentTypes "pawsewa/types/payment"
	requestTypes "pawsewa/types/service_request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu      sync.Mutex
	result  paymentService.LookupResult
	block   bool
	lookups int
}

func (g *fakeGateway) Name() payment.Gateway { return payment.GatewayKhalti }

func (g *fakeGateway) Begin(_ context.Context, p *payment.Payment, _ string, _ paymentService.Customer) (*paymentTypes.Checkout, string, error) {
	pidx := "pidx-" + p.PurchaseOrderID
	return &paymentTypes.Checkout{Pidx: pidx, PaymentURL: "https://pay.khalti.test/" + pidx}, pidx, nil
}

func (g *fakeGateway) Lookup(ctx context.Context, _ *payment.Payment) (*paymentService.LookupResult, error) {
	g.mu.Lock()
	g.lookups++
	block, res := g.block, g.result
	g.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &res, nil
}

func (g *fakeGateway) set(status payment.Status, raw string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.result = paymentService.LookupResult{Status: status, RawStatus: raw, AmountPaisa: amount, Raw: []byte(`{"status":"` + raw + `"}`)}
}

// fakeEsewaStatus serves the eSewa status API, echoing the queried amount.
type fakeEsewaStatus struct {
	mu     sync.Mutex
	status string
	checks int
}

func (f *fakeEsewaStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.checks++
	status := f.status
	f.mu.Unlock()
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"product_code":%q,"transaction_uuid":%q,"total_amount":%q,"status":%q,"ref_id":"0001TS9"}`,
		q.Get("product_code"), q.Get("transaction_uuid"), q.Get("total_amount"), status)
}

func (f *fakeEsewaStatus) set(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeEsewaStatus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

type env struct {
	db       *gorm.DB
	rec      *eventstest.Recorder
	khalti   *fakeGateway
	esewa    *esewa.Client
	status   *fakeEsewaStatus
	svc      *paymentService.PaymentService
	owner    policy.Actor
	provider policy.Actor
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	owner := user.User{Name: "Sita", Email: "sita@pawsewa.test", PasswordHash: "x", Role: user.RolePetOwner}
	provider := user.User{Name: "Happy Paws", Email: "paws@pawsewa.test", PasswordHash: "x", Role: user.RoleHostelOwner, BusinessLicenseVerified: true}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&provider).Error)

	catalog, err := config.LoadPlans("")
	require.NoError(t, err)

	kg := &fakeGateway{}
	status := &fakeEsewaStatus{status: esewa.StatusComplete}
	srv := httptest.NewServer(status)
	t.Cleanup(srv.Close)
	ec := esewa.NewClient(esewa.Options{
		InitURL: "https://rc-epay.esewa.test/form", StatusURL: srv.URL, SecretKey: "esewa-secret", ProductCode: "EPAYTEST",
		SuccessURL: "http://localhost/success", FailureURL: "http://localhost/failure", Timeout: time.Second,
	})
	rec := &eventstest.Recorder{}
	svc := paymentService.NewPaymentService(db,
		[]paymentService.Gateway{kg, paymentService.NewEsewaGateway(ec)},
		ec, catalog, rec, nil, 500*time.Millisecond)
	e := &env{
		db: db, rec: rec, khalti: kg, esewa: ec, status: status, svc: svc,
		owner:    policy.NewActor(owner.ID, owner.Role, owner.Name),
		provider: policy.NewActor(provider.ID, provider.Role, provider.Name),
		now:      time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	svc.Now = func() time.Time { return e.now }
	return e
}

func (e *env) serviceRequest(t *testing.T, method requestModel.PaymentMethod) requestModel.ServiceRequest {
	t.Helper()
	p := pet.Pet{OwnerID: e.owner.ID, Name: "Tommy", Species: pet.SpeciesDog}
	require.NoError(t, e.db.Create(&p).Error)
	r := requestModel.ServiceRequest{
		UserID: e.owner.ID, PetID: p.ID,
		ServiceType: requestModel.ServiceTypeVaccination, TimeWindow: requestModel.TimeWindowMorning,
		PreferredDate:   time.Date(2025, 5, 31, 18, 15, 0, 0, time.UTC),
		LocationAddress: "Baneshwor", LocationLat: 27.69, LocationLng: 85.34,
		Status: requestModel.StatusPending, PaymentMethod: method, PaymentStatus: payment.PaidStatusUnpaid,
	}
	require.NoError(t, e.db.Create(&r).Error)
	return r
}

func (e *env) paymentFor(t *testing.T, id uint) payment.Payment {
	t.Helper()
	var p payment.Payment
	require.NoError(t, e.db.First(&p, id).Error)
	return p
}

func TestInitiateRecordsPendingPayment(t *testing.T) {
	e := newEnv(t)
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)

	checkout, err := e.svc.Initiate(context.Background(), e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), checkout.AmountPaisa)
	assert.Equal(t, "khalti", checkout.Gateway)
	assert.NotEmpty(t, checkout.PaymentURL)

	p := e.paymentFor(t, checkout.PaymentID)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, payment.TargetService, p.TargetType)
	require.NotNil(t, p.ServiceRequestID)
	assert.Equal(t, r.ID, *p.ServiceRequestID)
	assert.Equal(t, checkout.Pidx, p.TransactionRef())
}

func TestInitiateChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)

	_, err := e.svc.Initiate(ctx, e.provider, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: 999, Amount: 1500})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 5})
	assert.ErrorIs(t, err, apperrors.ErrValidation, "below the Khalti minimum")

	_, err = e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "subscription", TargetID: 1, Amount: 500})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, requestService.MarkPaid(e.db, r.ID, payment.GatewayKhalti))
	_, err = e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus())
}

func TestVerifyCompletesServiceRequestOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	e.khalti.set(payment.StatusCompleted, "Completed", 150000)
	res, err := e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)
	assert.True(t, res.Completed())
	assert.False(t, res.AlreadyCompleted)

	var stored requestModel.ServiceRequest
	require.NoError(t, e.db.First(&stored, r.ID).Error)
	assert.Equal(t, payment.PaidStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.PaymentGateway)
	assert.Equal(t, payment.GatewayKhalti, *stored.PaymentGateway)
	assert.Equal(t, payment.StatusCompleted, e.paymentFor(t, checkout.PaymentID).Status)
	assert.ElementsMatch(t,
		[]string{events.UserTopic(e.owner.ID), events.RequestTopic(r.ID)},
		e.rec.Topics(events.PaymentCompleted))

	again, err := e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 1, e.khalti.lookups, "completed payments are not looked up again")
	assert.Len(t, e.rec.Topics(events.PaymentCompleted), 2)
}

func TestVerifyFailureLeavesOwnerUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	e.khalti.set(payment.StatusFailed, "User canceled", 150000)
	res, err := e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)
	assert.False(t, res.Completed())
	assert.Equal(t, "Payment was cancelled. You can try again when ready.", res.Message)

	p := e.paymentFor(t, checkout.PaymentID)
	assert.Equal(t, payment.StatusFailed, p.Status)
	assert.Equal(t, "User canceled", p.FailureReason)

	var stored requestModel.ServiceRequest
	require.NoError(t, e.db.First(&stored, r.ID).Error)
	assert.Equal(t, payment.PaidStatusUnpaid, stored.PaymentStatus)
	assert.Empty(t, e.rec.Topics(events.PaymentCompleted))
}

func TestVerifyAmountMismatchChangesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	e.khalti.set(payment.StatusCompleted, "Completed", 1000)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	assert.Equal(t, payment.StatusPending, e.paymentFor(t, checkout.PaymentID).Status)
	var stored requestModel.ServiceRequest
	require.NoError(t, e.db.First(&stored, r.ID).Error)
	assert.Equal(t, payment.PaidStatusUnpaid, stored.PaymentStatus)
}

func TestVerifyGatewayTimeoutIsUpstream(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	e.khalti.block = true
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())
	assert.Equal(t, payment.StatusPending, e.paymentFor(t, checkout.PaymentID).Status)
}

func TestVerifyUnknownReference(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = e.svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubscriptionPaymentCreatesOneSubscription(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		require.NoError(t, e.db.Create(&listing.Listing{ProviderID: e.provider.ID, Title: "Room"}).Error)
	}

	checkout, err := e.svc.StartSubscription(ctx, e.provider, subscriptionModel.PlanBasic, subscriptionModel.BillingMonthly, 50000, payment.GatewayKhalti)
	require.NoError(t, err)

	e.khalti.set(payment.StatusCompleted, "Completed", 50000)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)

	var subs []subscriptionModel.Subscription
	require.NoError(t, e.db.Find(&subs).Error)
	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, subscriptionModel.StatusActive, sub.Status)
	assert.Equal(t, e.provider.ID, sub.ProviderID)
	assert.Equal(t, int64(50000), sub.AmountPaidPaisa)
	require.NotNil(t, sub.ValidUntil)
	assert.True(t, sub.ValidUntil.Equal(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, sub.PaymentID)
	assert.Equal(t, checkout.PaymentID, *sub.PaymentID)

	var active int64
	require.NoError(t, e.db.Model(&listing.Listing{}).Where("is_active = ?", true).Count(&active).Error)
	assert.Equal(t, int64(5), active, "basic plan lists at most five")
}

func TestYearlySubscriptionRunsOneYear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	checkout, err := e.svc.StartSubscription(ctx, e.provider, subscriptionModel.PlanPremium, subscriptionModel.BillingYearly, 1500000, payment.GatewayKhalti)
	require.NoError(t, err)

	e.khalti.set(payment.StatusCompleted, "Completed", 1500000)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)

	var sub subscriptionModel.Subscription
	require.NoError(t, e.db.First(&sub).Error)
	assert.True(t, sub.ValidUntil.Equal(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, subscriptionModel.PlanPremium, sub.Plan)
}

func TestFailedSubscriptionPaymentCreatesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	checkout, err := e.svc.StartSubscription(ctx, e.provider, subscriptionModel.PlanBasic, subscriptionModel.BillingMonthly, 50000, payment.GatewayKhalti)
	require.NoError(t, err)

	e.khalti.set(payment.StatusFailed, "Expired", 50000)
	res, err := e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)
	assert.Equal(t, "Payment link expired. Please initiate a new payment.", res.Message)

	var count int64
	require.NoError(t, e.db.Model(&subscriptionModel.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func (e *env) callback(t *testing.T, uuid, status, amount string) string {
	t.Helper()
	cb := esewa.Callback{
		TransactionCode: "000AWEO", Status: status, TotalAmount: amount,
		TransactionUUID: uuid, ProductCode: "EPAYTEST",
		SignedFieldNames: "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
	cb.Signature = e.esewa.Sign(cb.SignedFieldNames, map[string]string{
		"transaction_code": cb.TransactionCode, "status": cb.Status, "total_amount": cb.TotalAmount,
		"transaction_uuid": cb.TransactionUUID, "product_code": cb.ProductCode, "signed_field_names": cb.SignedFieldNames,
	})
	raw, err := json.Marshal(cb)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEsewaCallbackConfirmsCareBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	booking := careModel.CareBooking{
		UserID: e.owner.ID, PetID: 1, HostelID: e.provider.ID,
		CheckIn: e.now.AddDate(0, 0, 3), CheckOut: e.now.AddDate(0, 0, 5), TotalAmountPaisa: 300000,
		Status: careModel.BookingPending, PaymentStatus: payment.PaidStatusUnpaid,
	}
	require.NoError(t, e.db.Create(&booking).Error)

	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "care_booking", TargetID: booking.ID, Gateway: "esewa"})
	require.NoError(t, err)
	require.NotNil(t, checkout.Form)
	assert.Equal(t, "3000.00", checkout.Form.TotalAmount)
	assert.Equal(t, checkout.PurchaseOrderID, checkout.Form.TransactionUUID)

	_, err = e.svc.VerifyEsewaCallback(ctx, e.callback(t, checkout.PurchaseOrderID, esewa.StatusComplete, "3,000.0"), "forged")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, payment.StatusPending, e.paymentFor(t, checkout.PaymentID).Status)

	_, err = e.svc.VerifyEsewaCallback(ctx, e.callback(t, checkout.PurchaseOrderID, esewa.StatusComplete, "2,000.0"), "")
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	assert.Zero(t, e.status.count(), "rejected callbacks never reach the status API")

	res, err := e.svc.VerifyEsewaCallback(ctx, e.callback(t, checkout.PurchaseOrderID, esewa.StatusComplete, "3,000.0"), "")
	require.NoError(t, err)
	assert.True(t, res.Completed())
	assert.Equal(t, 1, e.status.count())

	var stored careModel.CareBooking
	require.NoError(t, e.db.First(&stored, booking.ID).Error)
	assert.Equal(t, careModel.BookingConfirmed, stored.Status)
	assert.Equal(t, payment.PaidStatusPaid, stored.PaymentStatus)
}

func (e *env) esewaBooking(t *testing.T) (careModel.CareBooking, *paymentTypes.Checkout) {
	t.Helper()
	booking := careModel.CareBooking{
		UserID: e.owner.ID, PetID: 1, HostelID: e.provider.ID,
		CheckIn: e.now.AddDate(0, 0, 3), CheckOut: e.now.AddDate(0, 0, 5), TotalAmountPaisa: 300000,
		Status: careModel.BookingPending, PaymentStatus: payment.PaidStatusUnpaid,
	}
	require.NoError(t, e.db.Create(&booking).Error)
	checkout, err := e.svc.Initiate(context.Background(), e.owner, paymentTypes.InitiateRequest{Type: "care_booking", TargetID: booking.ID, Gateway: "esewa"})
	require.NoError(t, err)
	require.NotNil(t, checkout.Form)
	return booking, checkout
}

func TestEsewaCallbackRejectsReplayedFormSignature(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	booking, checkout := e.esewaBooking(t)
	form := checkout.Form

	for _, names := range []string{"", form.SignedFieldNames} {
		doc, err := json.Marshal(map[string]string{
			"transaction_code":   "FAKE",
			"status":             esewa.StatusComplete,
			"total_amount":       form.TotalAmount,
			"transaction_uuid":   form.TransactionUUID,
			"product_code":       form.ProductCode,
			"signed_field_names": names,
			"signature":          form.Signature,
		})
		require.NoError(t, err)

		_, err = e.svc.VerifyEsewaCallback(ctx, base64.StdEncoding.EncodeToString(doc), "")
		assert.ErrorIs(t, err, apperrors.ErrForbidden, "signed_field_names=%q", names)
	}

	assert.Equal(t, payment.StatusPending, e.paymentFor(t, checkout.PaymentID).Status)
	var stored careModel.CareBooking
	require.NoError(t, e.db.First(&stored, booking.ID).Error)
	assert.Equal(t, payment.PaidStatusUnpaid, stored.PaymentStatus)
	assert.Empty(t, e.rec.Topics(events.PaymentCompleted))
}

func TestEsewaCallbackNeedsStatusConfirmation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	booking, checkout := e.esewaBooking(t)

	e.status.set(esewa.StatusPending)
	res, err := e.svc.VerifyEsewaCallback(ctx, e.callback(t, checkout.PurchaseOrderID, esewa.StatusComplete, "3,000.0"), "")
	require.NoError(t, err)
	assert.False(t, res.Completed())
	assert.Equal(t, esewa.StatusPending, res.GatewayStatus)
	assert.Equal(t, 1, e.status.count())

	var stored careModel.CareBooking
	require.NoError(t, e.db.First(&stored, booking.ID).Error)
	assert.Equal(t, payment.PaidStatusUnpaid, stored.PaymentStatus)
	assert.Empty(t, e.rec.Topics(events.PaymentCompleted))

	e.status.set(esewa.StatusComplete)
	res, err = e.svc.VerifyEsewaCallback(ctx, e.callback(t, checkout.PurchaseOrderID, esewa.StatusComplete, "3,000.0"), "")
	require.NoError(t, err)
	assert.True(t, res.Completed())
}

func TestVerifyCompletedWithoutAmountIsMismatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	e.khalti.set(payment.StatusCompleted, "Completed", 0)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)
	assert.Equal(t, payment.StatusPending, e.paymentFor(t, checkout.PaymentID).Status)
	assert.Empty(t, e.rec.Topics(events.PaymentCompleted))
}

func TestFailureReasonKeepsWholeRunes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)

	// "x" shifts every three-byte rune so byte 255 falls inside one.
	reason := "x" + strings.Repeat("भुक्तानी", 20)
	e.khalti.set(payment.StatusFailed, reason, 150000)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)

	stored := e.paymentFor(t, checkout.PaymentID).FailureReason
	assert.True(t, utf8.ValidString(stored))
	assert.LessOrEqual(t, len(stored), 255)
	assert.True(t, strings.HasPrefix(reason, stored))
	assert.Greater(t, len(stored), 250)
}

func TestCareAndOrderTargets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	care := careModel.CareRequest{
		UserID: e.owner.ID, PetID: 1, CareType: careModel.CareTypeGrooming,
		StartDate: e.now, EndDate: e.now, Status: careModel.RequestPendingPayment, PaymentStatus: payment.PaidStatusUnpaid,
	}
	require.NoError(t, e.db.Create(&care).Error)
	order := orderModel.Order{UserID: e.owner.ID, TotalAmountPaisa: 120000, Status: orderModel.StatusPending, PaymentStatus: payment.PaidStatusUnpaid}
	require.NoError(t, e.db.Create(&order).Error)

	careCheckout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "care", TargetID: care.ID, Amount: 800})
	require.NoError(t, err)
	e.khalti.set(payment.StatusCompleted, "Completed", 80000)
	_, err = e.svc.Verify(ctx, careCheckout.Pidx)
	require.NoError(t, err)

	orderCheckout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "order", TargetID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(120000), orderCheckout.AmountPaisa)
	e.khalti.set(payment.StatusCompleted, "Completed", 120000)
	_, err = e.svc.Verify(ctx, orderCheckout.Pidx)
	require.NoError(t, err)

	require.NoError(t, e.db.First(&care, care.ID).Error)
	assert.Equal(t, careModel.RequestPendingReview, care.Status)
	assert.Equal(t, payment.PaidStatusPaid, care.PaymentStatus)
	require.NoError(t, e.db.First(&order, order.ID).Error)
	assert.Equal(t, payment.PaidStatusPaid, order.PaymentStatus)
}

// An online request cannot be assigned until its payment is verified.
func TestPaymentUnlocksAssignment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.serviceRequest(t, requestModel.PaymentMethodOnline)
	admin := user.User{Name: "Admin", Email: "admin@pawsewa.test", PasswordHash: "x", Role: user.RoleAdmin}
	vet := user.User{Name: "Dr. Hari", Email: "hari@pawsewa.test", PasswordHash: "x", Role: user.RoleVeterinarian}
	require.NoError(t, e.db.Create(&admin).Error)
	require.NoError(t, e.db.Create(&vet).Error)

	requests := requestService.NewServiceRequestService(e.db, e.rec, nil, config.Geofence{}, time.UTC, nil)
	adminActor := policy.NewActor(admin.ID, admin.Role, admin.Name)
	assignment := requestTypes.AssignRequest{StaffID: vet.ID, ScheduledTime: "2025-06-01T10:00:00+05:45"}

	_, err := requests.Assign(ctx, adminActor, r.ID, assignment)
	require.ErrorIs(t, err, apperrors.ErrPaymentRequired)

	checkout, err := e.svc.Initiate(ctx, e.owner, paymentTypes.InitiateRequest{Type: "service", TargetID: r.ID, Amount: 1500})
	require.NoError(t, err)
	e.khalti.set(payment.StatusCompleted, "Completed", 150000)
	_, err = e.svc.Verify(ctx, checkout.Pidx)
	require.NoError(t, err)

	assigned, err := requests.Assign(ctx, adminActor, r.ID, assignment)
	require.NoError(t, err)
	assert.Equal(t, requestModel.StatusAssigned, assigned.Status)
	assert.Equal(t, payment.PaidStatusPaid, assigned.PaymentStatus)
}
