package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupRetryExhausted aborts the round: a group kept failing with system errors.
	ErrGroupRetryExhausted = errors.New("group retries exhausted")

	ErrRoundAborted = errors.New("round aborted")

	ErrSchedulerBusy = errors.New("another round is executing")

	ErrSchedulerStopped = errors.New("scheduler stopped")

	ErrIsolationViolation = errors.New("mutation outside detected resources")

	ErrGroupTimeout = errors.New("group execution timeout")

	ErrWorkerPanic = errors.New("worker panicked")
)

// SystemError is a worker-level fault. It invalidates every result of the group it happened in.
type SystemError struct {
	Round      uint64
	GroupIndex int
	WorkerID   int
	Cause      error
}

func NewSystemError(round uint64, groupIndex int, workerID int, cause error) *SystemError {
	return &SystemError{
		Round:      round,
		GroupIndex: groupIndex,
		WorkerID:   workerID,
		Cause:      cause,
	}
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system error: round %d group %d worker %d: %v", e.Round, e.GroupIndex, e.WorkerID, e.Cause)
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}
