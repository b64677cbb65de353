package common

import (
	"github.com/fundwit/go-commons/types"
)

// CurrentTimestampFunc is the time source of every mutating path.
// Tests replace it to pin the clock.
var CurrentTimestampFunc = types.CurrentTimestamp
