package asio

import "github.com/sockloop/asio/internal/constants"

// MaxInterestFDs bounds the direct-indexing fast path some callers may
// choose to use when pre-sizing interest-list snapshots; the multiplexer's
// interest list itself is unbounded.
const MaxInterestFDs = constants.MaxInterestFDs
