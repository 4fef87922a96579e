// Package receipt renders order receipts as PDF with a signed QR code.
package receipt

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

type Line struct {
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Receipt struct {
	OrderID    uint
	CreatedAt  time.Time
	OrderDate  time.Time
	Customer   string
	Phone      string
	Address    string
	BuyingType string
	Status     string
	Comment    string
	Lines      []Line
	Total      decimal.Decimal
}

// Reference is the human readable order number printed on the receipt.
func Reference(orderID uint, createdAt time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", createdAt.UTC().Format("20060102"), orderID)
}

// Signer produces the QR payload: reference|total|signature.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Signer) Payload(r Receipt) string {
	data := fmt.Sprintf("%s|%s", Reference(r.OrderID, r.CreatedAt), r.Total.StringFixed(2))
	return data + "|" + s.sign(data)
}

// Verify checks a payload produced by Payload and returns its reference.
func (s *Signer) Verify(payload string) (string, bool) {
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return "", false
	}
	data, sig := payload[:idx], payload[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(data))) {
		return "", false
	}
	ref, _, _ := strings.Cut(data, "|")
	return ref, true
}

// Render lays the receipt out on one A4 page.
func (s *Signer) Render(r Receipt) ([]byte, error) {
	qrPNG, err := qrcode.Encode(s.Payload(r), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	details := []string{
		"Order: " + Reference(r.OrderID, r.CreatedAt),
		"Placed: " + r.CreatedAt.Format("2006-01-02 15:04"),
		"Requested date: " + r.OrderDate.Format("2006-01-02"),
		"Customer: " + r.Customer,
		"Phone: " + r.Phone,
		"Address: " + r.Address,
		"Buying type: " + r.BuyingType,
		"Status: " + r.Status,
	}
	for _, line := range details {
		pdf.Cell(0, 8, tr(line))
		pdf.Ln(7)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, line := range r.Lines {
		pdf.CellFormat(100, 8, tr(line.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, line.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, line.LineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 10, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, r.Total.StringFixed(2), "T", 1, "R", false, 0, "")

	if r.Comment != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, tr("Comment: "+r.Comment), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
