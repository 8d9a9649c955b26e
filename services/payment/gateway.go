package payment

import (
	"context"
	"strings"

	"pawsewa/config"
	"pawsewa/httpServices/esewa"
	"pawsewa/httpServices/khalti"
	"pawsewa/models/payment"
	paymentTypes "pawsewa/types/payment"
)

// Customer is passed through to gateways that show payer details.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// LookupResult is a gateway's answer normalised to our payment states.
// A completed result without an amount is treated as a mismatch.
type LookupResult struct {
	Status      payment.Status
	RawStatus   string
	AmountPaisa int64
	Raw         []byte
}

// Gateway is one payment provider.
type Gateway interface {
	Name() payment.Gateway
	// Begin opens a checkout for p and returns it with the reference later used for lookups.
	Begin(ctx context.Context, p *payment.Payment, title string, customer Customer) (*paymentTypes.Checkout, string, error)
	Lookup(ctx context.Context, p *payment.Payment) (*LookupResult, error)
}

type khaltiGateway struct {
	client     *khalti.Client
	returnURL  string
	websiteURL string
}

func NewKhaltiGateway(cfg config.Khalti, client *khalti.Client) Gateway {
	return &khaltiGateway{client: client, returnURL: cfg.ReturnURL, websiteURL: cfg.WebsiteURL}
}

func (g *khaltiGateway) Name() payment.Gateway {
	return payment.GatewayKhalti
}

func (g *khaltiGateway) Begin(ctx context.Context, p *payment.Payment, title string, customer Customer) (*paymentTypes.Checkout, string, error) {
	resp, err := g.client.Initiate(ctx, khalti.InitiateRequest{
		ReturnURL:         g.returnURL,
		WebsiteURL:        g.websiteURL,
		Amount:            p.AmountPaisa,
		PurchaseOrderID:   p.PurchaseOrderID,
		PurchaseOrderName: title,
		CustomerInfo:      &khalti.CustomerInfo{Name: customer.Name, Email: customer.Email, Phone: customer.Phone},
	})
	if err != nil {
		return nil, "", err
	}
	return &paymentTypes.Checkout{Pidx: resp.Pidx, PaymentURL: resp.PaymentURL}, resp.Pidx, nil
}

func (g *khaltiGateway) Lookup(ctx context.Context, p *payment.Payment) (*LookupResult, error) {
	resp, raw, err := g.client.Lookup(ctx, p.TransactionRef())
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		Status:      khaltiStatus(resp.Status),
		RawStatus:   resp.Status,
		AmountPaisa: resp.TotalAmount,
		Raw:         raw,
	}, nil
}

func khaltiStatus(s string) payment.Status {
	if s == khalti.StatusCompleted {
		return payment.StatusCompleted
	}
	return payment.StatusFailed
}

type esewaGateway struct {
	client *esewa.Client
}

func NewEsewaGateway(client *esewa.Client) Gateway {
	return &esewaGateway{client: client}
}

func (g *esewaGateway) Name() payment.Gateway {
	return payment.GatewayEsewa
}

// Begin needs no network call: the browser posts the signed form itself.
func (g *esewaGateway) Begin(_ context.Context, p *payment.Payment, _ string, _ Customer) (*paymentTypes.Checkout, string, error) {
	form := g.client.NewForm(p.PurchaseOrderID, p.AmountPaisa)
	return &paymentTypes.Checkout{FormURL: g.client.InitURL(), Form: &form}, p.PurchaseOrderID, nil
}

func (g *esewaGateway) Lookup(ctx context.Context, p *payment.Payment) (*LookupResult, error) {
	resp, raw, err := g.client.Status(ctx, p.PurchaseOrderID, p.AmountPaisa)
	if err != nil {
		return nil, err
	}
	amount, err := resp.StatusAmount()
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		Status:      esewaStatus(resp.Status),
		RawStatus:   resp.Status,
		AmountPaisa: amount,
		Raw:         raw,
	}, nil
}

func esewaStatus(s string) payment.Status {
	if s == esewa.StatusComplete {
		return payment.StatusCompleted
	}
	return payment.StatusFailed
}

// FailureMessage turns a gateway status or reason into text for the payer.
func FailureMessage(reason string) string {
	r := strings.ToLower(strings.TrimSpace(reason))
	switch {
	case r == "":
		return "Payment was not completed. Please try again."
	case strings.Contains(r, "cancel"):
		return "Payment was cancelled. You can try again when ready."
	case strings.Contains(r, "expire"), strings.Contains(r, "timeout"):
		return "Payment link expired. Please initiate a new payment."
	case strings.Contains(r, "insufficient"), strings.Contains(r, "balance"):
		return "Insufficient balance. Please add funds to your wallet and try again."
	case strings.Contains(r, "decline"), strings.Contains(r, "reject"):
		return "Payment was declined. Please try another payment method."
	case strings.Contains(r, "fail"), strings.Contains(r, "error"):
		return "Payment failed. Please try again or use another payment method."
	default:
		return "Payment was not completed. Please try again."
	}
}
