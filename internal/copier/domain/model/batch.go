package model

// MaxBatchSize is the largest number of writes a single commit may carry.
const MaxBatchSize = 500

// DefaultBatchSize is the number of writes per commit when nothing else is configured.
const DefaultBatchSize = MaxBatchSize

// WriteOperation is one staged set of a full document payload.
type WriteOperation struct {
	Collection string                 `json:"collection"`
	DocumentID string                 `json:"documentId"`
	Data       map[string]interface{} `json:"data"`
}

// CommitCount returns how many commits copying total documents takes with the
// given batch size.
func CommitCount(total, batchSize int) int {
	if total <= 0 || batchSize <= 0 {
		return 0
	}
	return (total + batchSize - 1) / batchSize
}

// ValidBatchSize reports whether size fits the backend write limit.
func ValidBatchSize(size int) bool {
	return size >= 1 && size <= MaxBatchSize
}
