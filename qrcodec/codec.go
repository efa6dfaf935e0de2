// Package qrcodec encodes application payloads into the tagged JSON envelope
// carried inside QR codes, and decodes scanned text back into typed
// payloads. Decode is total: it is the trust boundary for scanner input and
// degrades to an address fallback instead of failing.
package qrcodec

import (
	// Go Internal Packages
	"encoding/base64"

	// Local Packages
	models "masspay/models"

	// External Packages
	"github.com/goccy/go-json"
	qrcode "github.com/skip2/go-qrcode"
)

// qrSize matches the 256px rendering the dashboard produced.
const qrSize = 256

// EncodeString serializes a payload into its JSON envelope, the layer the
// round-trip contract is defined on: Decode(EncodeString(p)) == p.
func EncodeString(p models.QRPayload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	env["type"] = string(p.PayloadType())
	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encode renders the envelope as a PNG QR code and returns it as a base64
// data URI, error correction level M.
func Encode(p models.QRPayload) (string, error) {
	data, err := EncodeString(p)
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(data, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Decode interprets raw scanned text. A valid envelope with all required
// fields for its type yields that variant. A JSON object without a usable
// type but carrying an address-shaped field yields the address variant.
// Anything else, including invalid JSON and binary garbage, yields the
// address variant wrapping the raw input. Never returns an error.
func Decode(raw string) models.QRPayload {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env == nil {
		return models.Address{Address: raw}
	}

	var tag string
	if v, ok := env["type"]; ok {
		_ = json.Unmarshal(v, &tag)
	}

	switch models.PayloadType(tag) {
	case models.PayloadPaymentRequest:
		var p models.PaymentRequest
		if json.Unmarshal([]byte(raw), &p) == nil && p.Amount != "" && p.Asset != "" && p.Recipient != "" {
			return p
		}
	case models.PayloadInvoice:
		var p models.Invoice
		if json.Unmarshal([]byte(raw), &p) == nil && p.InvoiceNumber != "" && p.Amount != "" && p.Token != "" && p.Network != "" {
			return p
		}
	case models.PayloadTrustVerification:
		var p models.TrustVerification
		if json.Unmarshal([]byte(raw), &p) == nil && p.DocumentHash != "" && p.UserID != "" {
			return p
		}
	case models.PayloadAddress:
		var p models.Address
		if json.Unmarshal([]byte(raw), &p) == nil && p.Address != "" {
			return p
		}
	}

	// Unknown or incomplete envelope: salvage an address field if present.
	if v, ok := env["address"]; ok {
		var addr string
		if json.Unmarshal(v, &addr) == nil && addr != "" {
			return models.Address{Address: addr}
		}
	}
	return models.Address{Address: raw}
}
