package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrInvalidSignature is returned when a payment confirmation fails
// verification. The message stays generic: a forged caller learns nothing
// about why the signature was rejected.
var ErrInvalidSignature = errors.New("payment signature verification failed")

// Sign computes the hex HMAC-SHA256 digest the gateway attaches to a payment
// confirmation: the digest of "{gatewayOrderRef}|{gatewayPaymentID}" under
// the shared secret.
func Sign(secret []byte, gatewayOrderRef, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderRef))
	mac.Write([]byte("|"))
	mac.Write([]byte(gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the confirmation digest and compares it against
// the supplied signature in constant time. It must be called before any
// order lookup so forged requests cannot probe for order existence.
func VerifySignature(secret []byte, gatewayOrderRef, gatewayPaymentID, signature string) error {
	expected, err := hex.DecodeString(Sign(secret, gatewayOrderRef, gatewayPaymentID))
	if err != nil {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(expected, got) {
		return ErrInvalidSignature
	}
	return nil
}
