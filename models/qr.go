package models

type PayloadType string

const (
	PayloadPaymentRequest    PayloadType = "payment_request"
	PayloadInvoice           PayloadType = "invoice"
	PayloadTrustVerification PayloadType = "trust_verification"
	PayloadAddress           PayloadType = "address"
)

// QRPayload is the tagged union carried inside a QR code. The concrete types
// below are the only implementations; Address doubles as the fallback for
// input that is not a recognizable envelope.
type QRPayload interface {
	PayloadType() PayloadType
}

// PaymentRequest asks a scanner to pay Amount of Asset to Recipient.
// Amount stays a string: it is display/interchange data, not arithmetic.
type PaymentRequest struct {
	Amount      string `json:"amount"`
	Asset       string `json:"asset"`
	Recipient   string `json:"recipient"`
	Description string `json:"description,omitempty"`
}

func (PaymentRequest) PayloadType() PayloadType { return PayloadPaymentRequest }

// Invoice references a previously issued invoice.
type Invoice struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Amount        string `json:"amount"`
	Token         string `json:"token"`
	Network       string `json:"network"`
}

func (Invoice) PayloadType() PayloadType { return PayloadInvoice }

// TrustVerification binds a document hash to a user and a timestamp as a
// lightweight provenance claim. Not a signature scheme.
type TrustVerification struct {
	DocumentHash string `json:"documentHash"`
	UserID       string `json:"userId"`
	Timestamp    int64  `json:"timestamp"`
}

func (TrustVerification) PayloadType() PayloadType { return PayloadTrustVerification }

// Address carries a bare address, or the raw scanned string when the input
// was not a valid envelope.
type Address struct {
	Address string `json:"address"`
}

func (Address) PayloadType() PayloadType { return PayloadAddress }
