package activitypub

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"testing"

	"github.com/deemkeen/fedbridge/util"
)

// generateTestKeyPair generates an RSA key pair for testing
func generateTestKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	return privateKey
}

// calculateDigest calculates SHA-256 digest for request body
func calculateDigest(body []byte) string {
	hash := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(hash[:])
}

// privateKeyToPEM converts private key to PEM string
func privateKeyToPEM(key *rsa.PrivateKey) string {
	keyBytes := x509.MarshalPKCS1PrivateKey(key)
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: keyBytes,
	})
	return string(keyPEM)
}

// publicKeyToPKIXPEM converts public key to a PKIX PEM string, the
// encoding remote actor documents carry
func publicKeyToPKIXPEM(t *testing.T, key *rsa.PublicKey) string {
	t.Helper()
	keyBytes, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal public key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: keyBytes,
	})
	return string(keyPEM)
}

func signedTestRequest(t *testing.T, privateKey *rsa.PrivateKey, body []byte, date string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", "https://mastodon.example/users/alice/inbox", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Date", date)
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("Digest", calculateDigest(body))

	if err := SignRequest(req, privateKey, "https://fed.example.com/user.example.com"); err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}
	return req
}

func TestParsePrivateKey(t *testing.T) {
	privateKey := generateTestKeyPair(t)

	parsed, err := ParsePrivateKey(privateKeyToPEM(privateKey))
	if err != nil {
		t.Fatalf("ParsePrivateKey failed: %v", err)
	}

	if parsed.N.Cmp(privateKey.N) != 0 {
		t.Error("Parsed key doesn't match original")
	}
}

func TestParsePrivateKeyInvalidPEM(t *testing.T) {
	_, err := ParsePrivateKey("not a valid PEM")
	if err == nil {
		t.Error("Expected error for invalid PEM")
	}
}

func TestParsePublicKeyPKIX(t *testing.T) {
	privateKey := generateTestKeyPair(t)

	parsed, err := ParsePublicKey(publicKeyToPKIXPEM(t, &privateKey.PublicKey))
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}

	if parsed.N.Cmp(privateKey.N) != 0 {
		t.Error("Parsed key doesn't match original")
	}
}

func TestParsePublicKeyPKCS1(t *testing.T) {
	// Our own keypairs are PKCS#1 encoded
	keypair := util.GeneratePemKeypair()

	parsed, err := ParsePublicKey(keypair.Public)
	if err != nil {
		t.Fatalf("ParsePublicKey failed on PKCS#1 PEM: %v", err)
	}
	if parsed == nil {
		t.Fatal("ParsePublicKey returned nil")
	}
}

func TestGeneratedKeypairRoundtrip(t *testing.T) {
	keypair := util.GeneratePemKeypair()

	privateKey, err := ParsePrivateKey(keypair.Private)
	if err != nil {
		t.Fatalf("ParsePrivateKey failed: %v", err)
	}
	publicKey, err := ParsePublicKey(keypair.Public)
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	if privateKey.N.Cmp(publicKey.N) != 0 {
		t.Error("Keypair halves don't match")
	}
}

func TestSignAndVerifyRoundtrip(t *testing.T) {
	privateKey := generateTestKeyPair(t)
	body := []byte(`{"type": "Accept"}`)

	req := signedTestRequest(t, privateKey, body, "Mon, 02 Jan 2006 15:04:05 GMT")

	if req.Header.Get("Signature") == "" {
		t.Fatal("Expected Signature header")
	}

	keyId, err := VerifyRequest(req, publicKeyToPKIXPEM(t, &privateKey.PublicKey))
	if err != nil {
		t.Fatalf("VerifyRequest failed: %v", err)
	}
	if keyId != "https://fed.example.com/user.example.com" {
		t.Errorf("Unexpected keyId owner: %s", keyId)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	privateKey := generateTestKeyPair(t)
	otherKey := generateTestKeyPair(t)
	body := []byte(`{"type": "Accept"}`)

	req := signedTestRequest(t, privateKey, body, "Mon, 02 Jan 2006 15:04:05 GMT")

	_, err := VerifyRequest(req, publicKeyToPKIXPEM(t, &otherKey.PublicKey))
	if err == nil {
		t.Error("Expected verification failure with the wrong key")
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	// PKCS#1 v1.5 signing has no randomness: same key, same headers,
	// same body must produce the same Signature header
	privateKey := generateTestKeyPair(t)
	body := []byte(`{"type": "Create", "id": "https://mastodon.example/activities/1"}`)
	date := "Mon, 02 Jan 2006 15:04:05 GMT"

	first := signedTestRequest(t, privateKey, body, date)
	second := signedTestRequest(t, privateKey, body, date)

	if first.Header.Get("Signature") != second.Header.Get("Signature") {
		t.Error("Expected identical signatures for identical input")
	}
}
