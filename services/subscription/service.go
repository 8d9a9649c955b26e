package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawsewa/apperrors"
	"pawsewa/config"
	"pawsewa/logger"
	"pawsewa/models/listing"
	"pawsewa/models/payment"
	subscriptionModel "pawsewa/models/subscription"
	"pawsewa/models/user"
	"pawsewa/services/policy"
	"pawsewa/types"
	paymentTypes "pawsewa/types/payment"
	subscriptionTypes "pawsewa/types/subscription"

	"gorm.io/gorm"
)

// minimumAmountPaisa is the smallest amount Khalti accepts.
const minimumAmountPaisa = 1000

// PaymentStarter opens a subscription payment with a gateway.
type PaymentStarter interface {
	StartSubscription(ctx context.Context, actor policy.Actor, plan subscriptionModel.Plan, cycle subscriptionModel.BillingCycle, amountPaisa int64, gateway payment.Gateway) (*paymentTypes.Checkout, error)
}

type SubscriptionService struct {
	DB       *gorm.DB
	Catalog  *config.PlanCatalog
	Payments PaymentStarter
	Now      func() time.Time
}

func NewSubscriptionService(db *gorm.DB, catalog *config.PlanCatalog, payments PaymentStarter) *SubscriptionService {
	return &SubscriptionService{DB: db, Catalog: catalog, Payments: payments, Now: time.Now}
}

func (s *SubscriptionService) Plans() []config.Plan {
	return s.Catalog.Plans
}

// latestActive returns the provider's subscription with the furthest validity that is still running.
func (s *SubscriptionService) latestActive(ctx context.Context, providerID uint) (*subscriptionModel.Subscription, error) {
	var sub subscriptionModel.Subscription
	err := s.DB.WithContext(ctx).
		Where("provider_id = ? AND status = ? AND valid_until > ?", providerID, subscriptionModel.StatusActive, s.Now().UTC()).
		Order("valid_until DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load subscription")
	}
	return &sub, nil
}

// Mine returns the provider's most recent subscription and whether it grants listing rights now.
func (s *SubscriptionService) Mine(ctx context.Context, actor policy.Actor) (*subscriptionTypes.Mine, error) {
	var sub subscriptionModel.Subscription
	err := s.DB.WithContext(ctx).Where("provider_id = ?", actor.ID).Order("created_at DESC").Order("id DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &subscriptionTypes.Mine{}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load subscription")
	}

	active := sub.IsActiveAt(s.Now())
	out := &subscriptionTypes.Mine{Subscription: &sub, IsActive: active, CanList: active}
	if plan, ok := s.Catalog.Find(string(sub.Plan)); ok {
		out.PlanConfig = &plan
	}
	return out, nil
}

func (s *SubscriptionService) IsActive(ctx context.Context, providerID uint) (bool, error) {
	sub, err := s.latestActive(ctx, providerID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// PlatformFeePercent is the active plan's fee, or the catalogue default without a subscription.
func (s *SubscriptionService) PlatformFeePercent(ctx context.Context, providerID uint) (float64, error) {
	sub, err := s.latestActive(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return s.Catalog.DefaultFeePercent, nil
	}
	plan, ok := s.Catalog.Find(string(sub.Plan))
	if !ok {
		return s.Catalog.DefaultFeePercent, nil
	}
	return plan.PlatformFeePercent, nil
}

// Initiate prices the plan from the catalogue and starts the payment.
func (s *SubscriptionService) Initiate(ctx context.Context, actor policy.Actor, in subscriptionTypes.InitiateRequest) (*paymentTypes.Checkout, error) {
	if !actor.CanSubscribe() && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only providers can subscribe")
	}
	if !actor.IsAdmin() {
		var u user.User
		if err := s.DB.WithContext(ctx).Select("id", "business_license_verified").First(&u, actor.ID).Error; err != nil {
			return nil, apperrors.Auth("User not found")
		}
		if !u.BusinessLicenseVerified {
			return nil, apperrors.Forbidden("Your business license must be verified by admin before you can subscribe. Please submit a provider application.")
		}
	}
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	plan := subscriptionModel.Plan(in.Plan)
	cfg, ok := s.Catalog.Find(in.Plan)
	if !plan.IsValid() || !ok {
		return nil, apperrors.Validation("Valid plan (basic or premium) required")
	}
	cycle := subscriptionModel.BillingCycle(in.BillingCycle)
	if !cycle.IsValid() {
		return nil, apperrors.Validation("Valid billingCycle (monthly or yearly) required")
	}

	price := cfg.MonthlyPrice
	if cycle == subscriptionModel.BillingYearly {
		price = cfg.YearlyPrice
	}
	amount := payment.ToPaisa(float64(price))
	if amount < minimumAmountPaisa {
		return nil, apperrors.Validation("Invalid subscription amount")
	}

	gateway := payment.GatewayKhalti
	if in.Gateway != "" {
		gateway = payment.Gateway(in.Gateway)
	}
	if s.Payments == nil {
		return nil, apperrors.Upstream(apperrors.ErrNotConfigured, "Payments are not configured")
	}
	return s.Payments.StartSubscription(ctx, actor, plan, cycle, amount, gateway)
}

// Activate creates the subscription paid for by p and switches on the provider's listings
// up to the plan limit. It runs inside the payment completion transaction.
func Activate(tx *gorm.DB, catalog *config.PlanCatalog, p *payment.Payment, at time.Time) (*subscriptionModel.Subscription, error) {
	plan, ok := catalog.Find(p.Plan)
	if !ok {
		return nil, fmt.Errorf("unknown plan %q on payment %d", p.Plan, p.ID)
	}
	cycle := subscriptionModel.BillingCycle(p.BillingCycle)
	if !cycle.IsValid() {
		return nil, fmt.Errorf("unknown billing cycle %q on payment %d", p.BillingCycle, p.ID)
	}

	from := at.UTC()
	until := cycle.ValidUntil(from)
	paymentID := p.ID
	sub := subscriptionModel.Subscription{
		ProviderID:           p.UserID,
		Plan:                 subscriptionModel.Plan(p.Plan),
		BillingCycle:         cycle,
		Status:               subscriptionModel.StatusActive,
		ValidFrom:            &from,
		ValidUntil:           &until,
		AmountPaidPaisa:      p.AmountPaisa,
		GatewayTransactionID: p.TransactionRef(),
		PaymentID:            &paymentID,
	}
	if err := tx.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if err := syncListings(tx, p.UserID, plan.MaxListings); err != nil {
		return nil, err
	}
	return &sub, nil
}

// syncListings activates the provider's oldest listings up to limit and deactivates the rest.
// A negative limit activates all of them.
func syncListings(tx *gorm.DB, providerID uint, limit int) error {
	var ids []uint
	q := tx.Model(&listing.Listing{}).Where("provider_id = ?", providerID).Order("created_at ASC").Order("id ASC")
	if limit >= 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("select listings: %w", err)
	}

	off := tx.Model(&listing.Listing{}).Where("provider_id = ?", providerID)
	if len(ids) > 0 {
		off = off.Where("id NOT IN ?", ids)
	}
	if err := off.Update("is_active", false).Error; err != nil {
		return fmt.Errorf("deactivate listings: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&listing.Listing{}).Where("id IN ?", ids).Update("is_active", true).Error; err != nil {
		return fmt.Errorf("activate listings: %w", err)
	}
	return nil
}

// ExpireDue marks lapsed subscriptions expired and hides the listings of providers left without one.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int64, error) {
	now := s.Now().UTC()
	var expired int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []subscriptionModel.Subscription
		if err := tx.Where("status = ? AND valid_until <= ?", subscriptionModel.StatusActive, now).Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(due))
		providers := make(map[uint]struct{}, len(due))
		for _, sub := range due {
			ids = append(ids, sub.ID)
			providers[sub.ProviderID] = struct{}{}
		}
		res := tx.Model(&subscriptionModel.Subscription{}).Where("id IN ?", ids).Update("status", subscriptionModel.StatusExpired)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected

		for providerID := range providers {
			var live int64
			err := tx.Model(&subscriptionModel.Subscription{}).
				Where("provider_id = ? AND status = ? AND valid_until > ?", providerID, subscriptionModel.StatusActive, now).
				Count(&live).Error
			if err != nil {
				return err
			}
			if live > 0 {
				continue
			}
			if err := tx.Model(&listing.Listing{}).Where("provider_id = ?", providerID).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Internal(err, "failed to expire subscriptions")
	}
	return expired, nil
}

// RunSweeper calls ExpireDue every interval until ctx is cancelled.
func (s *SubscriptionService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireDue(ctx)
			if err != nil {
				logger.Error("Subscription sweep failed", err)
				continue
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("⏳ Expired %d subscription(s)", n))
			}
		}
	}
}
