package batch

import "errors"

// ErrMalformed marks a row with too few columns (spec §7 InputMalformed):
// the caller skips it and bumps a counter rather than failing the batch.
var ErrMalformed = errors.New("batch: malformed row")
