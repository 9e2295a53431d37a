package payment

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// SignRequest computes the MAC sent with a payment or refund request. The
// three fields are concatenated in this fixed order, not sorted.
func SignRequest(codTrans, divisa, importo, secret string) string {
	payload := "codTrans=" + codTrans + "divisa=" + divisa + "importo=" + importo + secret
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CallbackDigest is the uppercase MAC the gateway attaches to a callback:
// every field except mac, sorted by key, as key=value pairs with no
// separator, followed by the secret.
func CallbackDigest(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "mac" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	b.WriteString(secret)

	sum := sha1.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyCallback checks the mac field of a callback, ignoring case.
func VerifyCallback(fields map[string]string, secret string) error {
	received := strings.ToUpper(strings.TrimSpace(fields["mac"]))
	if received == "" {
		return ErrInvalidSignature
	}

	expected := CallbackDigest(fields, secret)
	if subtle.ConstantTimeCompare([]byte(received), []byte(expected)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
