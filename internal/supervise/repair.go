package supervise

import (
	"errors"
	"time"
)

// Repair poll/timeout constants, per spec.md §5. Var, not const, so
// internal/config's RuntimeConfig can override the defaults.
var (
	RepairPollInterval = 15 * time.Second
	RepairTimeout      = 10 * time.Minute
)

// ErrRepairTimeout is returned when no repair signal arrives within
// RepairTimeout. Per spec.md §7, this is fatal: the caller should record a
// crash and exit(1).
var ErrRepairTimeout = errors.New("repair timeout: no .repair-signal within 10 minutes")
