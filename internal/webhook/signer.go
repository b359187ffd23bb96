package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is the single verification failure. Wrong secret,
// stale timestamp and malformed header are deliberately indistinguishable
// to the caller.
var ErrInvalidSignature = errors.New("invalid signature")

// DefaultFreshnessWindow bounds replay exposure while tolerating modest
// clock skew and network latency.
const DefaultFreshnessWindow = 300 * time.Second

// Signer computes and checks time-boxed HMAC-SHA256 signatures over webhook
// payloads.
type Signer struct {
	secret    []byte
	freshness time.Duration
}

// NewSigner builds a signer around the shared secret. A non-positive
// freshness window falls back to the default.
func NewSigner(secret string, freshness time.Duration) *Signer {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	return &Signer{secret: []byte(secret), freshness: freshness}
}

// Sign computes the signature header value for the payload at the given
// unix timestamp: "t=<ts>,hmac=<hex>". The timestamp is captured at send
// time, not at payload construction time.
func (s *Signer) Sign(payload []byte, timestamp int64) string {
	return fmt.Sprintf("t=%d,hmac=%s", timestamp, s.digest(payload, timestamp))
}

// Verify checks a received signature header against the received payload at
// the moment "now". Every failure mode yields ErrInvalidSignature.
func (s *Signer) Verify(payload []byte, header string, now time.Time) error {
	timestamp, receivedHex, ok := parseHeader(header)
	if !ok {
		return ErrInvalidSignature
	}
	if now.Unix()-timestamp > int64(s.freshness/time.Second) {
		return ErrInvalidSignature
	}

	expected := s.digest(payload, timestamp)

	received, err := hex.DecodeString(receivedHex)
	if err != nil {
		return ErrInvalidSignature
	}
	want, err := hex.DecodeString(expected)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(received, want) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) digest(payload []byte, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseHeader splits "t=<ts>,hmac=<hex>" into its components, failing closed
// on anything missing or non-numeric.
func parseHeader(header string) (timestamp int64, hmacHex string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		switch {
		case strings.HasPrefix(part, "t="):
			ts, err := strconv.ParseInt(strings.TrimPrefix(part, "t="), 10, 64)
			if err != nil {
				return 0, "", false
			}
			timestamp = ts
		case strings.HasPrefix(part, "hmac="):
			hmacHex = strings.TrimPrefix(part, "hmac=")
		}
	}
	if timestamp == 0 || hmacHex == "" {
		return 0, "", false
	}
	return timestamp, hmacHex, true
}
