package misc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignSHA256 returns the hex-encoded HMAC-SHA256 signature of value under key.
func SignSHA256(value []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(value)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignatureSHA256 reports whether sig is the HMAC-SHA256 signature of
// value under key. Comparison is constant-time.
func ValidSignatureSHA256(sig string, value []byte, key string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(value)
	return hmac.Equal(want, mac.Sum(nil))
}
