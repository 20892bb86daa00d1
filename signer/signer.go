// Package signer serializes outbound wallet payloads and computes the
// transport signature. The signature is always taken over the exact bytes
// handed to the relay client: re-serializing on the receiving side would
// break verification on whitespace or key-order differences.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"

	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/config"
)

// Serializer turns a payload into the bytes sent on the wire. Two wire
// formats exist across wallet deployments; which one a given upstream
// expects is deployment configuration.
type Serializer interface {
	ContentType() string
	Marshal(params map[string]string) ([]byte, error)
}

// ForEncoding maps a config.Encoding* name to its Serializer. Unknown
// names fall back to JSON.
func ForEncoding(name string) Serializer {
	if name == config.EncodingForm {
		return Form{}
	}
	return JSON{}
}

// JSON serializes the payload as a JSON object. Empty params are omitted;
// map marshaling sorts keys, so output is deterministic.
type JSON struct{}

func (JSON) ContentType() string { return "application/json" }

func (JSON) Marshal(params map[string]string) ([]byte, error) {
	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if v != "" {
			filtered[k] = v
		}
	}
	return json.Marshal(filtered)
}

// Form serializes the payload as application/x-www-form-urlencoded.
// url.Values.Encode sorts keys, so output is deterministic.
type Form struct{}

func (Form) ContentType() string { return "application/x-www-form-urlencoded" }

func (Form) Marshal(params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	return []byte(values.Encode()), nil
}

// Sign computes the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}
