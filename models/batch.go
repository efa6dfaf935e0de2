package models

import (
	// Go Internal Packages
	"time"

	// External Packages
	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	StatusPending    BatchStatus = "pending"
	StatusProcessing BatchStatus = "processing"
	StatusComplete   BatchStatus = "complete"
	StatusFailed     BatchStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s BatchStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// CanTransition reports whether the lifecycle permits moving from s to next.
// pending → processing → {complete, failed}; pending is never revisited.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusComplete || next == StatusFailed
	}
	return false
}

// RecipientRecord is one payment target parsed from a CSV row.
// Immutable once produced by the parser.
type RecipientRecord struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Asset   string          `json:"asset"`
	Note    string          `json:"note,omitempty"`
}

// RowError reports one malformed CSV row that was skipped. Line is the
// 1-based line number in the uploaded text, counting the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// BatchPayment is the aggregate of one CSV upload.
type BatchPayment struct {
	BatchID           string            `json:"batchId"`
	RequesterID       string            `json:"requesterId"`
	FileName          string            `json:"fileName"`
	Recipients        []RecipientRecord `json:"recipients"`
	TotalRecipients   int               `json:"totalRecipients"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Status            BatchStatus       `json:"status"`
	TransactionHashes []string          `json:"transactionHashes,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
}

type MongoRecipient struct {
	Address string `bson:"address"`
	Amount  string `bson:"amount"`
	Asset   string `bson:"asset"`
	Note    string `bson:"note,omitempty"`
}

// MongoBatch is the persisted shape of a BatchPayment. Amounts are stored as
// decimal strings to survive round-trips exactly.
type MongoBatch struct {
	BatchID           string           `bson:"_id"`
	RequesterID       string           `bson:"requester_id"`
	FileName          string           `bson:"file_name"`
	Recipients        []MongoRecipient `bson:"recipients"`
	TotalRecipients   int              `bson:"total_recipients"`
	TotalAmount       string           `bson:"total_amount"`
	Status            BatchStatus      `bson:"status"`
	TransactionHashes []string         `bson:"transaction_hashes,omitempty"`
	CreatedAt         time.Time        `bson:"created_at"`
	CompletedAt       *time.Time       `bson:"completed_at,omitempty"`
}

func (b *BatchPayment) Transform() MongoBatch {
	recipients := make([]MongoRecipient, len(b.Recipients))
	for i, r := range b.Recipients {
		recipients[i] = MongoRecipient{
			Address: r.Address,
			Amount:  r.Amount.String(),
			Asset:   r.Asset,
			Note:    r.Note,
		}
	}
	return MongoBatch{
		BatchID:           b.BatchID,
		RequesterID:       b.RequesterID,
		FileName:          b.FileName,
		Recipients:        recipients,
		TotalRecipients:   b.TotalRecipients,
		TotalAmount:       b.TotalAmount.String(),
		Status:            b.Status,
		TransactionHashes: b.TransactionHashes,
		CreatedAt:         b.CreatedAt,
		CompletedAt:       b.CompletedAt,
	}
}

// ToBatchPayment converts the persisted shape back, re-parsing the stored
// decimal strings.
func (m MongoBatch) ToBatchPayment() (BatchPayment, error) {
	total, err := decimal.NewFromString(m.TotalAmount)
	if err != nil {
		return BatchPayment{}, err
	}
	recipients := make([]RecipientRecord, len(m.Recipients))
	for i, r := range m.Recipients {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return BatchPayment{}, err
		}
		recipients[i] = RecipientRecord{
			Address: r.Address,
			Amount:  amount,
			Asset:   r.Asset,
			Note:    r.Note,
		}
	}
	return BatchPayment{
		BatchID:           m.BatchID,
		RequesterID:       m.RequesterID,
		FileName:          m.FileName,
		Recipients:        recipients,
		TotalRecipients:   m.TotalRecipients,
		TotalAmount:       total,
		Status:            m.Status,
		TransactionHashes: m.TransactionHashes,
		CreatedAt:         m.CreatedAt,
		CompletedAt:       m.CompletedAt,
	}, nil
}
