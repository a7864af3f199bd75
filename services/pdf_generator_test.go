package services

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormbase/dorm-billing/backend/models"
)

func TestInvoiceNumber(t *testing.T) {
	entry := &models.BillingEntry{Month: "2026-08", RoomNumber: "101"}
	assert.Equal(t, "INV-202608-101", InvoiceNumber(entry))
}

func TestBuildPromptPayPayload(t *testing.T) {
	t.Run("mobile number", func(t *testing.T) {
		payload := BuildPromptPayPayload("0812345678", 450)
		require.NotEmpty(t, payload)

		// EMVCo framing: static header, dynamic QR, THB, country.
		assert.True(t, strings.HasPrefix(payload, "000201"))
		assert.Contains(t, payload, "010212")
		assert.Contains(t, payload, "5303764")
		assert.Contains(t, payload, "5406450.00")
		assert.Contains(t, payload, "5802TH")

		// Phone is carried as 0066 plus the number without its leading
		// zero.
		assert.Contains(t, payload, "01130066812345678")

		// CRC is the last four hex characters after the 6304 tag.
		idx := strings.LastIndex(payload, "6304")
		require.NotEqual(t, -1, idx)
		assert.Len(t, payload[idx+4:], 4)
	})

	t.Run("national id", func(t *testing.T) {
		payload := BuildPromptPayPayload("1234567890123", 100)
		require.NotEmpty(t, payload)
		assert.Contains(t, payload, "02131234567890123")
	})

	t.Run("formatting characters stripped", func(t *testing.T) {
		withDashes := BuildPromptPayPayload("081-234-5678", 450)
		plain := BuildPromptPayPayload("0812345678", 450)
		assert.Equal(t, plain, withDashes)
	})

	t.Run("unusable account yields empty payload", func(t *testing.T) {
		assert.Empty(t, BuildPromptPayPayload("12345", 100))
		assert.Empty(t, BuildPromptPayPayload("", 100))
	})
}

func TestCRC16CCITT(t *testing.T) {
	// Standard check value for CRC-16/CCITT-FALSE.
	assert.Equal(t, uint16(0x29B1), crc16ccitt([]byte("123456789")))
}

func TestGenerateBillPDF(t *testing.T) {
	dir := t.TempDir()
	pg := NewPDFGenerator(dir)

	entry := &models.BillingEntry{
		ID:              1,
		RoomNumber:      "101",
		Month:           "2026-08",
		RentPrice:       3000,
		WaterLast:       100,
		WaterCurrent:    150,
		WaterUsage:      50,
		WaterRate:       18,
		WaterCost:       900,
		ElectricLast:    500,
		ElectricCurrent: 620,
		ElectricUsage:   120,
		ElectricRate:    7,
		ElectricCost:    840,
		TotalAmount:     4740,
		Status:          models.StatusPending,
	}
	tenant := &models.Tenant{FirstName: "Somchai", LastName: "Jaidee", Phone: "0812345678"}
	cfg := models.SystemConfig{Currency: "THB", PromptPayID: "0899999999"}

	filename, err := pg.GenerateBillPDF(entry, tenant, cfg)
	require.NoError(t, err)
	assert.Equal(t, "INV-202608-101.pdf", filename)
	assert.FileExists(t, filepath.Join(dir, filename))
}

func TestGenerateBillPDFWithoutTenant(t *testing.T) {
	dir := t.TempDir()
	pg := NewPDFGenerator(dir)

	entry := &models.BillingEntry{
		RoomNumber:  "205",
		Month:       "2026-08",
		RentPrice:   2800,
		TotalAmount: 2800,
		Status:      models.StatusPaid,
	}

	filename, err := pg.GenerateBillPDF(entry, nil, models.SystemConfig{Currency: "THB"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, filename))
}
