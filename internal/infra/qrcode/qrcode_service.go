package qrcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"passport/config"
	"passport/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
	baseURL              string
}

// QRCodeData represents the QR code payload when no base URL is configured
type QRCodeData struct {
	ReferralCode string `json:"referral_code"`
	Type         string `json:"type"`
}

const defaultQRSize = 256

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(cfg *config.Config) service.QRCodeService {
	size := defaultQRSize
	levelName := ""
	baseURL := ""
	if cfg.QRCode != nil {
		if cfg.QRCode.Size > 0 {
			size = cfg.QRCode.Size
		}
		levelName = cfg.QRCode.ErrorCorrectionLevel
		baseURL = cfg.QRCode.BaseURL
	}

	// Set error correction level
	var level qrcode.RecoveryLevel
	switch levelName {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
		baseURL:              baseURL,
	}
}

// GenerateReferralQR generates a PNG QR code carrying the referral code.
// With a configured base URL the payload is a signup link, otherwise a JSON document.
func (s *qrcodeService) GenerateReferralQR(referralCode string) ([]byte, error) {
	var payload string
	if s.baseURL != "" {
		payload = strings.TrimSuffix(s.baseURL, "/") + "/register?ref=" + referralCode
	} else {
		data := QRCodeData{
			ReferralCode: referralCode,
			Type:         "referral",
		}

		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal QR code data: %w", err)
		}
		payload = string(jsonData)
	}

	// Generate QR code
	qrCode, err := qrcode.New(payload, s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// Generate PNG image
	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}
