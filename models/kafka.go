package models

// Record is one raw kafka record handed from the consumer to a processor.
type Record struct {
	Key   []byte
	Value []byte
	Topic string
}

// RecipientJob is one payment instruction produced to the recipients topic
// when a batch enters processing. The execution service consumes these and
// reports back with a SettlementEvent.
type RecipientJob struct {
	BatchID string `json:"batch_id"`
	Index   int    `json:"index"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Asset   string `json:"asset"`
	Note    string `json:"note,omitempty"`
}

// SettlementEvent is the completion notification consumed from the
// settlements topic. Outcome is "complete" or "failed".
type SettlementEvent struct {
	BatchID           string   `json:"batch_id"`
	Outcome           string   `json:"outcome"`
	TransactionHashes []string `json:"transaction_hashes,omitempty"`
}
