package payment

import (
	"errors"
	"html/template"
	"net/url"
	"strconv"

	"pawsewa/apperrors"
	"pawsewa/config"
	"pawsewa/logger"
	"pawsewa/middleware"
	paymentService "pawsewa/services/payment"
	"pawsewa/types"
	paymentTypes "pawsewa/types/payment"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title>
<style>body{font-family:sans-serif;text-align:center;padding:48px}h1{color:{{.Color}}}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .PaymentID}}<p>Reference: {{.PaymentID}}</p>{{end}}
<p>You can close this window and return to the app.</p>
</body>
</html>`))

type page struct {
	Title     string
	Color     string
	Message   string
	PaymentID string
}

type PaymentController struct {
	payments *paymentService.PaymentService
	cfg      config.Payment
}

func NewPaymentController(service *paymentService.PaymentService, cfg config.Payment) *PaymentController {
	return &PaymentController{payments: service, cfg: cfg}
}

func (h *PaymentController) Initiate(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req paymentTypes.InitiateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	checkout, err := h.payments.Initiate(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Payment initiated", checkout))
}

func (h *PaymentController) Verify(c *fiber.Ctx) error {
	var req paymentTypes.VerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Ref() == "" {
		return apperrors.Validation("pidx or transactionRef is required")
	}

	result, err := h.payments.Verify(c.UserContext(), req.Ref())
	if err != nil {
		return err
	}
	return c.JSON(types.ApiResponse{Success: result.Completed(), Message: result.Message, Data: result})
}

func (h *PaymentController) Show(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.payments.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", p))
}

// KhaltiCallback is Khalti's return_url. The query is only a hint; the lookup decides.
func (h *PaymentController) KhaltiCallback(c *fiber.Ctx) error {
	pidx := c.Query("pidx")
	if pidx == "" {
		return h.redirectFailure(c, 0, c.Query("status"))
	}

	result, err := h.payments.Verify(c.UserContext(), pidx)
	return h.redirect(c, result, err, c.Query("status"))
}

// EsewaCallback receives the signed base64 document eSewa appends to success_url.
func (h *PaymentController) EsewaCallback(c *fiber.Ctx) error {
	result, err := h.payments.VerifyEsewaCallback(c.UserContext(), c.Query("data"), c.Query("signature"))
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindForbidden {
		return err
	}
	return h.redirect(c, result, err, "")
}

func (h *PaymentController) redirect(c *fiber.Ctx, result *paymentTypes.VerifyResult, err error, hint string) error {
	if err != nil {
		logger.Error("Payment callback could not be verified", err)
		return h.redirectFailure(c, 0, hint)
	}
	if !result.Completed() {
		reason := result.GatewayStatus
		if reason == "" {
			reason = hint
		}
		return h.redirectFailure(c, result.PaymentID, reason)
	}
	q := url.Values{}
	q.Set("paymentId", strconv.FormatUint(uint64(result.PaymentID), 10))
	q.Set("type", result.TargetType)
	return c.Redirect(h.cfg.SuccessRedirect+"?"+q.Encode(), fiber.StatusFound)
}

func (h *PaymentController) redirectFailure(c *fiber.Ctx, paymentID uint, reason string) error {
	q := url.Values{}
	if paymentID != 0 {
		q.Set("paymentId", strconv.FormatUint(uint64(paymentID), 10))
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	target := h.cfg.FailureRedirect
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return c.Redirect(target, fiber.StatusFound)
}

func (h *PaymentController) Success(c *fiber.Ctx) error {
	return render(c, page{
		Title:     "Payment successful",
		Color:     "#2e7d32",
		Message:   "Your payment has been received. Thank you for choosing PawSewa.",
		PaymentID: c.Query("paymentId"),
	})
}

func (h *PaymentController) Failed(c *fiber.Ctx) error {
	return render(c, page{
		Title:     "Payment not completed",
		Color:     "#c62828",
		Message:   paymentService.FailureMessage(c.Query("reason")),
		PaymentID: c.Query("paymentId"),
	})
}

func render(c *fiber.Ctx, p page) error {
	c.Type("html", "utf-8")
	return resultPage.Execute(c.Response().BodyWriter(), p)
}
