// Package payment integrates the VNPay gateway: building signed redirect
// URLs for outbound payment requests and reconciling the asynchronous
// IPN callback against the order state.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/example/vivushop/pkg/config"
	"github.com/example/vivushop/pkg/models"
)

// Gateway response codes, mirroring the VNPay IPN convention.
const (
	RspSuccess          = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspInvalidSignature = "97"
	RspInvalidRequest   = "99"
)

const (
	secureHashParam     = "vnp_SecureHash"
	secureHashTypeParam = "vnp_SecureHashType"

	dateLayout = "20060102150405"
)

// Client signs outbound requests and verifies inbound callbacks with the
// shared merchant secret.
type Client struct {
	cfg *config.PaymentConfig
}

func NewClient(cfg *config.PaymentConfig) *Client {
	return &Client{cfg: cfg}
}

// BuildRedirectURL constructs the signed payment URL the customer is
// redirected to. The gateway expects the amount in hundredths of the
// currency unit and dates in GMT+7.
func (c *Client) BuildRedirectURL(ctx context.Context, order *models.Order, clientIP string, createdAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	expire := c.cfg.ExpireIn
	if expire <= 0 {
		expire = 15 * time.Minute
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     fmt.Sprintf("%d", order.TotalPrice*100),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     order.OrderID,
		"vnp_OrderInfo":  fmt.Sprintf("Thanh toan don hang %s", order.OrderID),
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": createdAt.Format(dateLayout),
		"vnp_ExpireDate": createdAt.Add(expire).Format(dateLayout),
	}

	query := canonicalQuery(params)
	signed := query + "&" + secureHashParam + "=" + sign(query, c.cfg.HashSecret)
	return c.cfg.PayURL + "?" + signed, nil
}

// VerifySignature recomputes the HMAC over the callback parameters,
// excluding the hash fields themselves, and compares in constant time.
func (c *Client) VerifySignature(params map[string]string) bool {
	received, ok := params[secureHashParam]
	if !ok || received == "" {
		return false
	}

	unsigned := make(map[string]string, len(params))
	for k, v := range params {
		if k == secureHashParam || k == secureHashTypeParam {
			continue
		}
		unsigned[k] = v
	}

	expected := sign(canonicalQuery(unsigned), c.cfg.HashSecret)
	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}

// canonicalQuery renders params as an URL-encoded query with keys in
// lexicographic order, the exact byte sequence both sides sign. Empty
// values are skipped, matching the gateway.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func sign(payload, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
