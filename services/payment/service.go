package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"pawsewa/apperrors"
	"pawsewa/config"
	"pawsewa/database"
	"pawsewa/httpServices/esewa"
	"pawsewa/logger"
	"pawsewa/metrics"
	careModel "pawsewa/models/care"
	orderModel "pawsewa/models/order"
	"pawsewa/models/payment"
	requestModel "pawsewa/models/service_request"
	subscriptionModel "pawsewa/models/subscription"
	"pawsewa/models/user"
	careService "pawsewa/services/care"
	"pawsewa/services/events"
	"pawsewa/services/policy"
	requestService "pawsewa/services/service_request"
	subscriptionService "pawsewa/services/subscription"
	"pawsewa/tracing"
	"pawsewa/types"
	paymentTypes "pawsewa/types/payment"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// minimumAmountPaisa is the smallest amount Khalti accepts.
const minimumAmountPaisa = 1000

// PaymentService initiates gateway payments and reconciles their outcome with the paid-for record.
type PaymentService struct {
	DB        *gorm.DB
	Gateways  map[payment.Gateway]Gateway
	Esewa     *esewa.Client
	Catalog   *config.PlanCatalog
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	Now       func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	gateways []Gateway,
	esewaClient *esewa.Client,
	catalog *config.PlanCatalog,
	publisher events.Publisher,
	m *metrics.Metrics,
	timeout time.Duration,
) *PaymentService {
	byName := make(map[payment.Gateway]Gateway, len(gateways))
	for _, g := range gateways {
		byName[g.Name()] = g
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentService{
		DB:        db,
		Gateways:  byName,
		Esewa:     esewaClient,
		Catalog:   catalog,
		Publisher: publisher,
		Metrics:   m,
		Timeout:   timeout,
		Now:       time.Now,
	}
}

func (s *PaymentService) gateway(name payment.Gateway) (Gateway, error) {
	g, ok := s.Gateways[name]
	if !ok {
		return nil, apperrors.Upstream(apperrors.ErrNotConfigured, "Payment gateway %s is not configured", name)
	}
	return g, nil
}

// target is the record a payment is for, resolved before the Payment row is written.
type target struct {
	kind        payment.TargetType
	id          uint
	title       string
	amountPaisa int64
}

func alreadyPaid() error {
	return apperrors.ErrAlreadyPaid.Msgf("This item has already been paid for").WithStatus(409)
}

// resolveTarget checks ownership and paid state and decides the amount.
func (s *PaymentService) resolveTarget(ctx context.Context, actor policy.Actor, in paymentTypes.InitiateRequest) (*target, error) {
	db := s.DB.WithContext(ctx)
	t := &target{kind: payment.TargetType(in.Type), id: in.TargetID, amountPaisa: payment.ToPaisa(in.Amount)}

	notFound := func(err error, what string) error {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("%s not found", what)
		}
		return apperrors.Internal(err, "failed to load %s", what)
	}

	switch t.kind {
	case payment.TargetService:
		var r requestModel.ServiceRequest
		if err := db.First(&r, in.TargetID).Error; err != nil {
			return nil, notFound(err, "Service request")
		}
		if r.UserID != actor.ID {
			return nil, apperrors.Forbidden("Not allowed for this request")
		}
		if r.PaymentStatus.IsPaid() {
			return nil, alreadyPaid()
		}
		if r.Status == requestModel.StatusCancelled {
			return nil, apperrors.Conflict("Cannot pay for a cancelled service request")
		}
		t.title = fmt.Sprintf("%s #%d", r.ServiceType, r.ID)
	case payment.TargetCare:
		var r careModel.CareRequest
		if err := db.First(&r, in.TargetID).Error; err != nil {
			return nil, notFound(err, "Care request")
		}
		if r.UserID != actor.ID {
			return nil, apperrors.Forbidden("Not allowed for this request")
		}
		if r.PaymentStatus.IsPaid() {
			return nil, alreadyPaid()
		}
		t.title = fmt.Sprintf("%s care #%d", r.CareType, r.ID)
	case payment.TargetCareBooking:
		var b careModel.CareBooking
		if err := db.First(&b, in.TargetID).Error; err != nil {
			return nil, notFound(err, "Care booking")
		}
		if b.UserID != actor.ID {
			return nil, apperrors.Forbidden("Not allowed for this booking")
		}
		if b.PaymentStatus.IsPaid() {
			return nil, alreadyPaid()
		}
		t.title = fmt.Sprintf("Hostel booking #%d", b.ID)
		t.amountPaisa = b.TotalAmountPaisa
	case payment.TargetOrder:
		var o orderModel.Order
		if err := db.First(&o, in.TargetID).Error; err != nil {
			return nil, notFound(err, "Order")
		}
		if o.UserID != actor.ID {
			return nil, apperrors.Forbidden("Not allowed for this order")
		}
		if o.PaymentStatus.IsPaid() {
			return nil, alreadyPaid()
		}
		t.title = fmt.Sprintf("Order #%d", o.ID)
		t.amountPaisa = o.TotalAmountPaisa
	default:
		return nil, apperrors.Validation("Unsupported payment type: %s", in.Type)
	}

	if t.amountPaisa <= 0 {
		return nil, apperrors.Validation("A positive amount (NPR) is required")
	}
	return t, nil
}

// Initiate opens a payment for a service, care request, care booking or order owned by the caller.
func (s *PaymentService) Initiate(ctx context.Context, actor policy.Actor, in paymentTypes.InitiateRequest) (*paymentTypes.Checkout, error) {
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	t, err := s.resolveTarget(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	gw := payment.GatewayKhalti
	if in.Gateway != "" {
		gw = payment.Gateway(in.Gateway)
	}

	p := &payment.Payment{
		UserID:      actor.ID,
		TargetType:  t.kind,
		AmountPaisa: t.amountPaisa,
		Gateway:     gw,
	}
	id := t.id
	switch t.kind {
	case payment.TargetService:
		p.ServiceRequestID = &id
	case payment.TargetCare:
		p.CareRequestID = &id
	case payment.TargetCareBooking:
		p.CareBookingID = &id
	case payment.TargetOrder:
		p.OrderID = &id
	}
	return s.start(ctx, actor, p, t.title)
}

// StartSubscription opens a payment for a plan. The Subscription is created when it completes.
func (s *PaymentService) StartSubscription(ctx context.Context, actor policy.Actor, plan subscriptionModel.Plan, cycle subscriptionModel.BillingCycle, amountPaisa int64, gateway payment.Gateway) (*paymentTypes.Checkout, error) {
	p := &payment.Payment{
		UserID:       actor.ID,
		TargetType:   payment.TargetSubscription,
		Plan:         string(plan),
		BillingCycle: string(cycle),
		AmountPaisa:  amountPaisa,
		Gateway:      gateway,
	}
	return s.start(ctx, actor, p, fmt.Sprintf("PawSewa %s plan (%s)", plan, cycle))
}

// start records the Payment, then asks the gateway for a checkout under the gateway deadline.
func (s *PaymentService) start(ctx context.Context, actor policy.Actor, p *payment.Payment, title string) (result *paymentTypes.Checkout, err error) {
	ctx, span := tracing.Start(ctx, "payment.initiate")
	defer func() { tracing.End(span, err) }()

	g, err := s.gateway(p.Gateway)
	if err != nil {
		return nil, err
	}
	if p.Gateway == payment.GatewayKhalti && p.AmountPaisa < minimumAmountPaisa {
		return nil, apperrors.Validation("Khalti requires a minimum of NPR 10")
	}

	p.PurchaseOrderID = "PS-" + uuid.NewString()
	p.Currency = "NPR"
	p.Status = payment.StatusInitiated
	if err := p.Validate(); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to record payment")
	}

	var u user.User
	if err := s.DB.WithContext(ctx).Select("id", "name", "email", "phone").First(&u, actor.ID).Error; err != nil {
		u = user.User{Name: actor.Name}
	}

	gctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	checkout, ref, err := g.Begin(gctx, p, title, Customer{Name: u.Name, Email: u.Email, Phone: u.Phone})
	if err != nil {
		s.markFailed(ctx, p.ID, "initiate: "+err.Error(), nil)
		logger.Error(fmt.Sprintf("Failed to initiate %s payment %s", p.Gateway, p.PurchaseOrderID), err)
		return nil, apperrors.Upstream(err, "Could not start the payment with %s", p.Gateway)
	}

	err = s.DB.WithContext(ctx).Model(&payment.Payment{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"gateway_transaction_id": ref,
		"status":                 payment.StatusPending,
	}).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to update payment")
	}

	checkout.PaymentID = p.ID
	checkout.PurchaseOrderID = p.PurchaseOrderID
	checkout.Gateway = string(p.Gateway)
	checkout.AmountPaisa = p.AmountPaisa
	checkout.Amount = payment.ToNPR(p.AmountPaisa)
	return checkout, nil
}

func (s *PaymentService) findByRef(ctx context.Context, ref string) (*payment.Payment, error) {
	if ref == "" {
		return nil, apperrors.Validation("Missing pidx or transaction reference")
	}
	var p payment.Payment
	err := s.DB.WithContext(ctx).
		Where("gateway_transaction_id = ? OR purchase_order_id = ?", ref, ref).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load payment")
	}
	return &p, nil
}

func completedResult(p *payment.Payment, already bool) *paymentTypes.VerifyResult {
	return &paymentTypes.VerifyResult{
		PaymentID:        p.ID,
		TargetType:       string(p.TargetType),
		Status:           string(payment.StatusCompleted),
		AlreadyCompleted: already,
		Message:          "Payment completed",
	}
}

// Verify asks the gateway for the state of the payment identified by ref and applies it.
// Verifying an already completed payment is a no-op success.
func (s *PaymentService) Verify(ctx context.Context, ref string) (result *paymentTypes.VerifyResult, err error) {
	ctx, span := tracing.Start(ctx, "payment.verify")
	defer func() { tracing.End(span, err) }()

	p, err := s.findByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p.IsCompleted() {
		return completedResult(p, true), nil
	}

	g, err := s.gateway(p.Gateway)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	res, err := g.Lookup(gctx, p)
	if err != nil {
		s.Metrics.PaymentVerified(string(p.Gateway), "upstream_error")
		return nil, apperrors.Upstream(err, "Could not verify the payment with %s", p.Gateway)
	}
	return s.apply(ctx, p, res)
}

// VerifyEsewaCallback checks the signed callback document. A COMPLETE callback is
// confirmed with the status API before the payment is completed.
func (s *PaymentService) VerifyEsewaCallback(ctx context.Context, data, signature string) (result *paymentTypes.VerifyResult, err error) {
	ctx, span := tracing.Start(ctx, "payment.esewa_callback")
	defer func() { tracing.End(span, err) }()

	if data == "" {
		return nil, apperrors.Validation("Missing data or signature")
	}
	if s.Esewa == nil {
		return nil, apperrors.Upstream(apperrors.ErrNotConfigured, "eSewa is not configured")
	}
	cb, raw, err := s.Esewa.DecodeCallback(data, signature)
	if errors.Is(err, esewa.ErrBadSignature) {
		s.Metrics.PaymentVerified(string(payment.GatewayEsewa), "bad_signature")
		logger.Warning(fmt.Sprintf("Rejected eSewa callback: %v", err))
		return nil, apperrors.Forbidden("Signature verification failed")
	}
	if err != nil {
		return nil, apperrors.Validation("Invalid data payload")
	}

	p, err := s.findByRef(ctx, cb.TransactionUUID)
	if err != nil {
		return nil, err
	}
	if p.Gateway != payment.GatewayEsewa {
		return nil, apperrors.Forbidden("Signature verification failed")
	}
	if p.IsCompleted() {
		return completedResult(p, true), nil
	}
	amount, err := esewa.ParseAmount(cb.TotalAmount)
	if err != nil {
		return nil, apperrors.Validation("Invalid total_amount in callback")
	}
	claimed := &LookupResult{
		Status:      esewaStatus(cb.Status),
		RawStatus:   cb.Status,
		AmountPaisa: amount,
		Raw:         raw,
	}
	if claimed.Status != payment.StatusCompleted {
		return s.apply(ctx, p, claimed)
	}
	if amount != p.AmountPaisa {
		return nil, s.amountMismatch(p, amount)
	}

	g, err := s.gateway(payment.GatewayEsewa)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	confirmed, err := g.Lookup(gctx, p)
	if err != nil {
		s.Metrics.PaymentVerified(string(p.Gateway), "upstream_error")
		return nil, apperrors.Upstream(err, "Could not verify the payment with %s", p.Gateway)
	}
	if confirmed.Status != payment.StatusCompleted {
		logger.Warning(fmt.Sprintf("eSewa callback for %s said %s but the status API reports %s",
			p.PurchaseOrderID, cb.Status, confirmed.RawStatus))
	}
	return s.apply(ctx, p, confirmed)
}

func (s *PaymentService) amountMismatch(p *payment.Payment, reported int64) error {
	s.Metrics.PaymentVerified(string(p.Gateway), "amount_mismatch")
	logger.Warning(fmt.Sprintf("Amount mismatch on payment %s: expected %d, gateway reported %d",
		p.PurchaseOrderID, p.AmountPaisa, reported))
	return apperrors.ErrAmountMismatch.Msgf("Paid amount does not match the expected amount")
}

// apply enforces the amount check, then completes or fails the payment.
func (s *PaymentService) apply(ctx context.Context, p *payment.Payment, res *LookupResult) (*paymentTypes.VerifyResult, error) {
	if res.Status == payment.StatusCompleted {
		if res.AmountPaisa != p.AmountPaisa {
			return nil, s.amountMismatch(p, res.AmountPaisa)
		}
		completedNow, err := s.complete(ctx, p.ID, res)
		if err != nil {
			return nil, err
		}
		if completedNow {
			s.Metrics.PaymentVerified(string(p.Gateway), "completed")
			s.announce(ctx, p)
		}
		out := completedResult(p, !completedNow)
		out.GatewayStatus = res.RawStatus
		return out, nil
	}

	s.markFailed(ctx, p.ID, res.RawStatus, res.Raw)
	s.Metrics.PaymentVerified(string(p.Gateway), "failed")
	return &paymentTypes.VerifyResult{
		PaymentID:     p.ID,
		TargetType:    string(p.TargetType),
		Status:        string(payment.StatusFailed),
		GatewayStatus: res.RawStatus,
		Message:       FailureMessage(res.RawStatus),
	}, nil
}

// complete marks the payment completed and flips its target in one transaction.
// It reports false when another caller completed the payment first.
func (s *PaymentService) complete(ctx context.Context, id uint, res *LookupResult) (bool, error) {
	completedNow := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if database.IsPostgres(tx) {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var p payment.Payment
		if err := q.First(&p, id).Error; err != nil {
			return err
		}
		if p.IsCompleted() {
			return nil
		}

		updates := map[string]interface{}{
			"status":         payment.StatusCompleted,
			"failure_reason": "",
		}
		if len(res.Raw) > 0 {
			updates["raw_gateway_payload"] = datatypes.JSON(res.Raw)
		}
		if err := tx.Model(&payment.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := s.markTarget(tx, &p); err != nil {
			return err
		}
		completedNow = true
		return nil
	})
	if err != nil {
		return false, apperrors.Internal(err, "failed to complete payment")
	}
	return completedNow, nil
}

// markTarget flips the paid-for record according to the payment's target type.
func (s *PaymentService) markTarget(tx *gorm.DB, p *payment.Payment) error {
	switch p.TargetType {
	case payment.TargetService:
		return requestService.MarkPaid(tx, *p.ServiceRequestID, p.Gateway)
	case payment.TargetCare:
		return careService.MarkPaid(tx, *p.CareRequestID)
	case payment.TargetCareBooking:
		return careService.MarkBookingPaid(tx, *p.CareBookingID)
	case payment.TargetOrder:
		res := tx.Model(&orderModel.Order{}).Where("id = ?", *p.OrderID).Update("payment_status", payment.PaidStatusPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d not found", *p.OrderID)
		}
		return nil
	case payment.TargetSubscription:
		_, err := subscriptionService.Activate(tx, s.Catalog, p, s.Now())
		return err
	default:
		return fmt.Errorf("payment %d has unknown target type %q", p.ID, p.TargetType)
	}
}

// markFailed records a failed attempt. A completed payment is never downgraded and the target is untouched.
func (s *PaymentService) markFailed(ctx context.Context, id uint, reason string, raw []byte) {
	reason = truncate(reason, 255)
	updates := map[string]interface{}{
		"status":         payment.StatusFailed,
		"failure_reason": reason,
	}
	if len(raw) > 0 {
		updates["raw_gateway_payload"] = datatypes.JSON(raw)
	}
	err := s.DB.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status <> ?", id, payment.StatusCompleted).
		Updates(updates).Error
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to mark payment %d failed", id), err)
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *PaymentService) announce(ctx context.Context, p *payment.Payment) {
	data := map[string]interface{}{
		"paymentId":  p.ID,
		"targetType": p.TargetType,
		"amount":     payment.ToNPR(p.AmountPaisa),
	}
	topics := []string{events.UserTopic(p.UserID)}
	if p.ServiceRequestID != nil {
		data["requestId"] = *p.ServiceRequestID
		topics = append(topics, events.RequestTopic(*p.ServiceRequestID))
	}
	events.Emit(ctx, s.Publisher, events.PaymentCompleted, data, topics...)
}

// Get returns one of the caller's payments.
func (s *PaymentService) Get(ctx context.Context, actor policy.Actor, id uint) (*payment.Payment, error) {
	var p payment.Payment
	err := s.DB.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load payment")
	}
	if p.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Not allowed to view this payment")
	}
	return &p, nil
}
