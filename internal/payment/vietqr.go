// Package payment builds bank-transfer instructions rendered as VietQR codes.
package payment

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinimumAmount is the smallest transfer the QR generator accepts, in VND
const MinimumAmount int64 = 1000

// ReferencePrefix starts every transfer reference ("DH" = don hang, order)
const ReferencePrefix = "DH"

// Amount converts an order total into a whole-dong transfer amount:
// rounded half away from zero, never below MinimumAmount.
func Amount(total decimal.Decimal) int64 {
	amount := total.Round(0).IntPart()
	if amount < MinimumAmount {
		return MinimumAmount
	}
	return amount
}

// RemoveDiacritics strips accents so bank apps that only accept ASCII
// transfer text can display it. Vietnamese đ/Đ have no decomposition and
// are mapped explicitly.
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

// AccountName formats a beneficiary name the way banks print it:
// no diacritics, upper case, single spaces.
func AccountName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(RemoveDiacritics(name)), " "))
}

// Reference derives the transfer note that ties a payment to an order
func Reference(orderID uuid.UUID) string {
	hex := strings.ReplaceAll(orderID.String(), "-", "")
	return ReferencePrefix + strings.ToUpper(hex[:8])
}

// QRRequest holds everything encoded in one VietQR image link
type QRRequest struct {
	BaseURL     string
	Template    string
	BankBIN     string
	AccountNo   string
	AccountName string
	Amount      int64
	Info        string
}

// QRImageURL returns the quick-link image URL
// {base}/{bin}-{account}-{template}.png?amount=..&addInfo=..&accountName=..
func QRImageURL(req QRRequest) string {
	base := strings.TrimRight(req.BaseURL, "/")
	template := req.Template
	if template == "" {
		template = "compact2"
	}

	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%d", req.Amount))
	if req.Info != "" {
		q.Set("addInfo", RemoveDiacritics(req.Info))
	}
	if req.AccountName != "" {
		q.Set("accountName", AccountName(req.AccountName))
	}

	return fmt.Sprintf("%s/%s-%s-%s.png?%s",
		base,
		url.PathEscape(req.BankBIN),
		url.PathEscape(req.AccountNo),
		url.PathEscape(template),
		q.Encode(),
	)
}
