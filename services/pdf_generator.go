package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/dormbase/dorm-billing/backend/models"
)

type PDFGenerator struct {
	invoiceDir string
}

func NewPDFGenerator(invoiceDir string) *PDFGenerator {
	return &PDFGenerator{invoiceDir: invoiceDir}
}

func (pg *PDFGenerator) InvoiceDir() string {
	return pg.invoiceDir
}

// GenerateBillPDF renders one billing entry as a printable invoice
// with an optional PromptPay payment QR and returns the file name.
func (pg *PDFGenerator) GenerateBillPDF(entry *models.BillingEntry, tenant *models.Tenant, cfg models.SystemConfig) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 123, 255)
	pdf.Cell(0, 10, "Room Invoice")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	invoiceNumber := InvoiceNumber(entry)
	pdf.Cell(0, 6, "#"+invoiceNumber)
	pdf.Ln(10)

	// Status badge
	pdf.SetFillColor(212, 237, 218)
	pdf.SetTextColor(21, 87, 36)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, strings.ToUpper(entry.Status), "", 0, "C", true, 0, "")
	pdf.Ln(12)

	// Bill To
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "BILL TO")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 5, "Room "+entry.RoomNumber)
	pdf.Ln(5)
	if tenant != nil {
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(0, 4, tenant.FirstName+" "+tenant.LastName)
		pdf.Ln(4)
		if tenant.Phone != "" {
			pdf.Cell(0, 4, tenant.Phone)
			pdf.Ln(4)
		}
		if tenant.Email != "" {
			pdf.Cell(0, 4, tenant.Email)
			pdf.Ln(4)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "BILLING MONTH: "+entry.Month)
	pdf.Ln(10)

	currency := cfg.Currency

	// Meter section
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(180, 5, "Meter Readings")
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(180, 4, fmt.Sprintf("  Water: %d -> %d (%d units)", entry.WaterLast, entry.WaterCurrent, entry.WaterUsage))
	pdf.Ln(4)
	pdf.Cell(180, 4, fmt.Sprintf("  Electric: %d -> %d (%d units)", entry.ElectricLast, entry.ElectricCurrent, entry.ElectricUsage))
	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)

	// Items table
	pdf.SetFillColor(249, 249, 249)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(130, 8, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "Amount", "B", 0, "R", true, 0, "")
	pdf.Ln(8)

	type line struct {
		description string
		amount      float64
	}
	lines := []line{
		{"Room Rent", entry.RentPrice},
		{fmt.Sprintf("Water: %d units x %.2f %s/unit", entry.WaterUsage, entry.WaterRate, currency), entry.WaterCost},
		{fmt.Sprintf("Electricity: %d units x %.2f %s/unit", entry.ElectricUsage, entry.ElectricRate, currency), entry.ElectricCost},
		{"Trash Collection", entry.TrashFee},
		{"Internet", entry.InternetFee},
		{"Other Fees", entry.OtherFee},
		{"Common Area - Water", entry.CommonWaterFee},
		{"Common Area - Electricity", entry.CommonElectricFee},
		{"Common Area - Internet", entry.CommonInternetFee},
		{"Common Area - Trash", entry.CommonTrashFee},
	}

	pdf.SetFont("Arial", "", 9)
	for _, l := range lines {
		if l.amount == 0 && !strings.HasPrefix(l.description, "Room Rent") {
			continue
		}
		pdf.CellFormat(130, 6, l.description, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%s %.2f", currency, l.amount), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	pdf.Ln(5)

	// Total
	pdf.SetFillColor(249, 249, 249)
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 15, fmt.Sprintf("Total: %s %.2f", currency, entry.TotalAmount), "", 0, "R", true, 0, "")
	pdf.Ln(20)

	// PromptPay QR
	if cfg.PromptPayID != "" {
		payload := BuildPromptPayPayload(cfg.PromptPayID, entry.TotalAmount)
		if payload != "" {
			tempQR := filepath.Join(os.TempDir(), fmt.Sprintf("qr_%s.png", invoiceNumber))
			if err := qrcode.WriteFile(payload, qrcode.Medium, 280, tempQR); err == nil {
				defer os.Remove(tempQR)

				pdf.SetFont("Arial", "B", 10)
				pdf.Cell(0, 6, "SCAN TO PAY (PromptPay)")
				pdf.Ln(8)
				pdf.ImageOptions(tempQR, 70, pdf.GetY(), 70, 70, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
				pdf.Ln(75)
				pdf.SetFont("Arial", "", 9)
				pdf.Cell(0, 5, fmt.Sprintf("Amount: %s %.2f  /  Ref: %s", currency, entry.TotalAmount, invoiceNumber))
			} else {
				log.Printf("Failed to generate QR code: %v", err)
			}
		}
	}

	if err := os.MkdirAll(pg.invoiceDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create invoice directory: %v", err)
	}

	filename := fmt.Sprintf("%s.pdf", invoiceNumber)
	outPath := filepath.Join(pg.invoiceDir, filename)

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("failed to save PDF: %v", err)
	}

	log.Printf("Generated invoice PDF: %s", filename)
	return filename, nil
}

// InvoiceNumber derives a stable invoice number from the entry.
func InvoiceNumber(entry *models.BillingEntry) string {
	return fmt.Sprintf("INV-%s-%s", strings.ReplaceAll(entry.Month, "-", ""), entry.RoomNumber)
}

// BuildPromptPayPayload assembles an EMVCo PromptPay payload for a
// Thai mobile number or 13-digit national ID. Returns "" when the
// account identifier is unusable.
func BuildPromptPayPayload(account string, amount float64) string {
	account = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, account)

	var accountField string
	switch {
	case len(account) == 13:
		accountField = emvField("02", account)
	case len(account) == 10 && strings.HasPrefix(account, "0"):
		// Phone numbers are carried as 0066 + number without the
		// leading zero.
		accountField = emvField("01", "0066"+account[1:])
	default:
		return ""
	}

	merchantInfo := emvField("00", "A000000677010111") + accountField

	payload := emvField("00", "01") + // payload format indicator
		emvField("01", "12") + // dynamic QR (amount included)
		emvField("29", merchantInfo) +
		emvField("53", "764") + // ISO 4217 THB
		emvField("54", fmt.Sprintf("%.2f", amount)) +
		emvField("58", "TH")

	payload += "6304"
	return payload + fmt.Sprintf("%04X", crc16ccitt([]byte(payload)))
}

func emvField(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func crc16ccitt(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
