package service

// QRCodeService defines the interface for QR code generation services.
type QRCodeService interface {
	// GenerateReferralQR generates a QR code PNG encoding the referral share
	// link for the given referral code.
	GenerateReferralQR(referralCode string) ([]byte, error)
}
