package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignatureAccepts(t *testing.T) {
	secret := "test_key_secret"
	orderID := "order_Nxq3hF7abc123"
	paymentID := "pay_Nxq5kP2def456"

	sig := signPayment(orderID, paymentID, secret)
	if !VerifyPaymentSignature(orderID, paymentID, sig, secret) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyPaymentSignatureRejectsAnySingleByteMutation(t *testing.T) {
	secret := "test_key_secret"
	orderID := "order_Nxq3hF7abc123"
	paymentID := "pay_Nxq5kP2def456"

	sig := signPayment(orderID, paymentID, secret)

	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		mutated[i] ^= 0x01
		if VerifyPaymentSignature(orderID, paymentID, string(mutated), secret) {
			t.Fatalf("signature with byte %d flipped verified", i)
		}
	}
}

func TestVerifyPaymentSignatureRejectsMismatchedIDs(t *testing.T) {
	secret := "test_key_secret"
	sig := signPayment("order_A", "pay_A", secret)

	if VerifyPaymentSignature("order_B", "pay_A", sig, secret) {
		t.Error("signature for a different order verified")
	}
	if VerifyPaymentSignature("order_A", "pay_B", sig, secret) {
		t.Error("signature for a different payment verified")
	}
}

func TestVerifyPaymentSignatureRejectsWrongSecret(t *testing.T) {
	sig := signPayment("order_A", "pay_A", "secret_one")
	if VerifyPaymentSignature("order_A", "pay_A", sig, "secret_two") {
		t.Error("signature verified under the wrong secret")
	}
}

func TestVerifyPaymentSignatureRejectsEmptyInputs(t *testing.T) {
	secret := "test_key_secret"
	sig := signPayment("order_A", "pay_A", secret)

	cases := []struct {
		name                         string
		orderID, paymentID, sigInput string
	}{
		{"empty order", "", "pay_A", sig},
		{"empty payment", "order_A", "", sig},
		{"empty signature", "order_A", "pay_A", ""},
	}
	for _, tc := range cases {
		if VerifyPaymentSignature(tc.orderID, tc.paymentID, tc.sigInput, secret) {
			t.Errorf("%s: verified", tc.name)
		}
	}

	if VerifyPaymentSignature("order_A", "pay_A", sig, "") {
		t.Error("empty secret: verified")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "webhook_secret"
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(body, sig, secret) {
		t.Fatal("expected valid webhook signature to verify")
	}

	tampered := append([]byte{}, body...)
	tampered[0] ^= 0x01
	if VerifyWebhookSignature(tampered, sig, secret) {
		t.Error("tampered body verified")
	}

	if VerifyWebhookSignature(body, sig, "other_secret") {
		t.Error("webhook signature verified under the wrong secret")
	}
	if VerifyWebhookSignature(nil, sig, secret) {
		t.Error("empty body verified")
	}
}
