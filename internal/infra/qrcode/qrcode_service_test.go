package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport/config"
)

func TestQRCodeService_GenerateReferralQR(t *testing.T) {
	cfg := &config.Config{QRCode: &config.QRCodeConfig{
		Size:                 128,
		ErrorCorrectionLevel: "M",
	}}
	svc := NewQRCodeService(cfg)

	data, err := svc.GenerateReferralQR("A1B2C3D4")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestQRCodeService_GenerateReferralQRWithBaseURL(t *testing.T) {
	cfg := &config.Config{QRCode: &config.QRCodeConfig{
		Size:                 64,
		ErrorCorrectionLevel: "H",
		BaseURL:              "https://example.com/",
	}}
	svc := NewQRCodeService(cfg)

	data, err := svc.GenerateReferralQR("A1B2C3D4")
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestQRCodeService_Defaults(t *testing.T) {
	svc := NewQRCodeService(&config.Config{})

	data, err := svc.GenerateReferralQR("A1B2C3D4")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultQRSize, img.Bounds().Dx())
}
