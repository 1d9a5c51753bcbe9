package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Headers carried by signed server-to-server callbacks (payment confirmations).
const (
	HeaderSignature = "X-Contentgate-Signature"
	HeaderDate      = "X-Contentgate-Date"
	HeaderNonce     = "X-Contentgate-Nonce"
	HeaderKeyID     = "X-Contentgate-Key"
)

func ComputeBodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func ComputeSignature(secret string, keyID string, method string, path string, query string, bodyHash string, date string, nonce string) string {
	data := strings.Join([]string{
		keyID,
		strings.ToUpper(method),
		path,
		query,
		bodyHash,
		date,
		nonce,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func ValidateSignature(secret string, keyID string, signature string, method string, path string, query string, body []byte, date string, nonce string) bool {
	bodyHash := ComputeBodyHash(body)
	expected := ComputeSignature(secret, keyID, method, path, query, bodyHash, date, nonce)
	return hmac.Equal([]byte(signature), []byte(expected))
}

type SignatureHeaders struct {
	KeyID     string
	Date      string
	Nonce     string
	Signature string
}

func ExtractSignatureHeaders(h http.Header) (SignatureHeaders, error) {
	headers := SignatureHeaders{
		KeyID:     h.Get(HeaderKeyID),
		Date:      h.Get(HeaderDate),
		Nonce:     h.Get(HeaderNonce),
		Signature: h.Get(HeaderSignature),
	}

	if headers.KeyID == "" || headers.Date == "" || headers.Nonce == "" || headers.Signature == "" {
		return SignatureHeaders{}, fmt.Errorf("missing signature headers")
	}
	return headers, nil
}

func CanonicalPath(r *http.Request) (string, string) {
	return r.URL.Path, r.URL.RawQuery
}
