package indexer

import "errors"

// The remaining spec §7 error kinds are declared near their point of
// use: shardfile.ErrCorrupt is IoCorrupt, batch.ErrMalformed is
// InputMalformed, and shardbuilder.ErrIoTransient/ErrContention are
// produced by the lock acquisition and cache I/O that can actually fail
// that way. ErrFatal lives here because ProcessBatch, the batch driver,
// is what unwinds on it.
var (
	// ErrFatal marks an unrecoverable condition that aborts the whole
	// batch — every shardbuilder error on the synchronous flush_cache
	// path (ErrContention included), and every error other than
	// ErrContention on the periodic write_cache path, surfaces wrapped in
	// this.
	ErrFatal = errors.New("indexer: fatal error")
)
