package coordinator

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ProtocolViolation is raised when a peer message does not match the
// expected kind for the current state, or fails cryptographic
// validation. Pre-funding it aborts the swap; post-funding it is a
// no-op, letting timelocks drive recovery via refund or punish.
type ProtocolViolation struct {
	Got      MessageKind
	Expected MessageKind
	cause    error
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: got %s, expected %s", e.Got, e.Expected)
}

func (e *ProtocolViolation) Unwrap() error { return e.cause }

// TemporalUnsafe is raised when a deal's temporal-safety parameters
// fail validation. Fatal at startup: the coordinator refuses to
// initiate or restore a swap with these parameters.
type TemporalUnsafe struct {
	cause error
}

func (e *TemporalUnsafe) Error() string {
	return fmt.Sprintf("temporal safety parameters rejected: %v", e.cause)
}

func (e *TemporalUnsafe) Unwrap() error { return e.cause }

// SyncerUnavailable is raised when a syncer cannot be reached.
// Transient: the coordinator keeps its state and retries on the next
// height event from any other syncer; no checkpoint change happens.
type SyncerUnavailable struct {
	cause error
}

func (e *SyncerUnavailable) Error() string {
	return fmt.Sprintf("syncer unavailable: %v", e.cause)
}

func (e *SyncerUnavailable) Unwrap() error { return e.cause }

// TaskUnknown is raised when an incoming syncer event references a
// task ID the registry does not know. Logged and dropped, not fatal:
// abort-in-flight and restart races can legitimately produce stale
// IDs.
type TaskUnknown struct {
	cause error
}

func (e *TaskUnknown) Error() string {
	return fmt.Sprintf("unknown task referenced: %v", e.cause)
}

func (e *TaskUnknown) Unwrap() error { return e.cause }

// CheckpointIoError is raised when a checkpoint read or write fails.
// Fatal on write — the coordinator never proceeds past a state
// transition it could not persist. On read, the swap refuses to
// restore.
type CheckpointIoError struct {
	cause error
}

func (e *CheckpointIoError) Error() string {
	return fmt.Sprintf("checkpoint I/O error: %v", e.cause)
}

func (e *CheckpointIoError) Unwrap() error { return e.cause }

// WalletError is returned by the wallet collaborator on a
// construction or signing failure. Logged and surfaced; the state
// machine stays in its current state awaiting retry or operator
// abort.
type WalletError struct {
	cause error
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet error: %v", e.cause)
}

func (e *WalletError) Unwrap() error { return e.cause }

// wrap attaches a stack trace at the boundary where err is about to be
// logged, following the teacher's convention of wrapping collaborator
// errors with go-errors/errors before writing them to the log.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}
