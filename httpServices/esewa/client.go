// Package esewa signs eSewa ePay v2 forms, verifies callbacks and queries transaction status.
package esewa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const signedFields = "total_amount,transaction_uuid,product_code"

// callbackFields must all be covered by a callback signature. The checkout
// form signs only the first three, so its signature cannot vouch for a status.
var callbackFields = []string{"transaction_code", "status", "total_amount", "transaction_uuid", "product_code"}

var ErrBadSignature = errors.New("esewa: signature verification failed")

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esewa returned %d: %s", e.Code, e.Body)
}

type Client struct {
	httpClient  *http.Client
	initURL     string
	statusURL   string
	secretKey   string
	productCode string
	successURL  string
	failureURL  string
}

type Options struct {
	InitURL     string
	StatusURL   string
	SecretKey   string
	ProductCode string
	SuccessURL  string
	FailureURL  string
	Timeout     time.Duration
}

func NewClient(o Options) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: o.Timeout},
		initURL:     o.InitURL,
		statusURL:   o.StatusURL,
		secretKey:   o.SecretKey,
		productCode: o.ProductCode,
		successURL:  o.SuccessURL,
		failureURL:  o.FailureURL,
	}
}

func (c *Client) InitURL() string {
	return c.initURL
}

// FormatAmount renders paisa as the two-decimal NPR string eSewa signs.
func FormatAmount(paisa int64) string {
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}

// ParseAmount reads an eSewa amount such as "1,000.0" into paisa.
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("esewa: invalid amount %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("esewa: negative amount %q", s)
	}
	return int64(f*100 + 0.5), nil
}

// Sign computes the base64 HMAC-SHA256 of the named fields in order.
func (c *Client) Sign(fieldNames string, values map[string]string) string {
	parts := make([]string, 0, 4)
	for _, name := range strings.Split(fieldNames, ",") {
		name = strings.TrimSpace(name)
		parts = append(parts, name+"="+values[name])
	}
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(strings.Join(parts, ",")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NewForm builds the signed checkout form for one transaction.
func (c *Client) NewForm(transactionUUID string, amountPaisa int64) Form {
	total := FormatAmount(amountPaisa)
	f := Form{
		Amount:                total,
		TaxAmount:             "0",
		TotalAmount:           total,
		TransactionUUID:       transactionUUID,
		ProductCode:           c.productCode,
		ProductServiceCharge:  "0",
		ProductDeliveryCharge: "0",
		SuccessURL:            c.successURL,
		FailureURL:            c.failureURL,
		SignedFieldNames:      signedFields,
	}
	f.Signature = c.Sign(signedFields, map[string]string{
		"total_amount":     f.TotalAmount,
		"transaction_uuid": f.TransactionUUID,
		"product_code":     f.ProductCode,
	})
	return f
}

// DecodeCallback parses the base64 data parameter and checks its signature.
// signature may be empty, in which case the one inside the document is used.
func (c *Client) DecodeCallback(data, signature string) (*Callback, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return nil, nil, fmt.Errorf("esewa: invalid callback encoding: %w", err)
		}
	}

	var cb Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, nil, fmt.Errorf("esewa: invalid callback payload: %w", err)
	}
	if signature == "" {
		signature = cb.Signature
	}
	fields := cb.SignedFieldNames
	if missing := missingFields(fields); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: unsigned fields %s", ErrBadSignature, strings.Join(missing, ","))
	}

	var all map[string]interface{}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, nil, fmt.Errorf("esewa: invalid callback payload: %w", err)
	}
	values := make(map[string]string, len(all))
	for k, v := range all {
		values[k] = fmt.Sprint(v)
	}

	expected := c.Sign(fields, values)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, nil, ErrBadSignature
	}
	if cb.ProductCode != c.productCode {
		return nil, nil, fmt.Errorf("%w: product code %q", ErrBadSignature, cb.ProductCode)
	}
	return &cb, raw, nil
}

func missingFields(names string) []string {
	signed := make(map[string]bool)
	for _, name := range strings.Split(names, ",") {
		signed[strings.TrimSpace(name)] = true
	}
	var missing []string
	for _, name := range callbackFields {
		if !signed[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Status asks eSewa for the state of a transaction.
func (c *Client) Status(ctx context.Context, transactionUUID string, amountPaisa int64) (*StatusResponse, []byte, error) {
	q := url.Values{}
	q.Set("product_code", c.productCode)
	q.Set("total_amount", FormatAmount(amountPaisa))
	q.Set("transaction_uuid", transactionUUID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	var out StatusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("esewa status: decode response: %w", err)
	}
	return &out, raw, nil
}

// StatusAmount reads total_amount from a status response, which eSewa sends as a number or a string.
func (r *StatusResponse) StatusAmount() (int64, error) {
	switch v := r.TotalAmount.(type) {
	case float64:
		return int64(v*100 + 0.5), nil
	case string:
		return ParseAmount(v)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("esewa: unexpected amount type %T", v)
	}
}
