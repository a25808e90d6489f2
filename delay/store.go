package delay

import "context"

// Store defines the persistence contract for the delay index, buckets and
// occurrence sets. Every method is a best-effort sequence of single-key
// atomic operations; callers must not rely on cross-key transactions.
type Store interface {
	// AddDelayed appends data to the bucket at due, records due in the
	// delay index and adds due to the occurrence set of nameHash.
	AddDelayed(ctx context.Context, due int64, nameHash string, data []byte) error

	// NextDue returns the smallest indexed timestamp that is not after now.
	NextDue(ctx context.Context, now int64) (due int64, ok bool, err error)

	// PopDelayed removes and returns the head of the bucket at due. Once
	// the bucket is empty, the bucket and its index entry are removed. An
	// already-empty bucket reports ok=false and still cleans the index.
	PopDelayed(ctx context.Context, due int64) (data []byte, ok bool, err error)

	// RemoveOccurrence removes due from the occurrence set of nameHash.
	RemoveOccurrence(ctx context.Context, nameHash string, due int64) error

	// CancelDelayed empties the bucket at due, removes due from the index
	// and removes due from the occurrence set of nameHash. Every job in the
	// bucket is discarded, not only those named nameHash.
	CancelDelayed(ctx context.Context, nameHash string, due int64) error

	// CancelAllDelayed applies CancelDelayed to every timestamp in the
	// occurrence set of nameHash, deletes the set and returns the
	// timestamps it held.
	CancelAllDelayed(ctx context.Context, nameHash string) ([]int64, error)

	// Occurrences returns the timestamps recorded for nameHash, ascending.
	Occurrences(ctx context.Context, nameHash string) ([]int64, error)

	// BucketLen returns the number of jobs in the bucket at due.
	BucketLen(ctx context.Context, due int64) (int64, error)

	// DelayIndex returns every indexed timestamp, ascending.
	DelayIndex(ctx context.Context) ([]int64, error)
}
