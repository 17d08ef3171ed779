package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature checks a webhook signature header of the form
// "ts=<unix>;h1=<hex hmac>" where the hmac is SHA-256 over "<ts>:<body>"
// keyed with the shared secret. Returns ErrInvalidSignature when the
// header is malformed or the digest does not match.
func VerifySignature(payload []byte, header, secret string) error {
	ts, digest, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("%w: bad digest encoding", ErrInvalidSignature)
	}
	if !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}

func parseSignatureHeader(header string) (ts, digest string, err error) {
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "h1":
			digest = value
		}
	}
	if ts == "" || digest == "" {
		return "", "", fmt.Errorf("%w: missing ts or h1", ErrInvalidSignature)
	}
	return ts, digest, nil
}
