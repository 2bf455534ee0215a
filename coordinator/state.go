package coordinator

import "fmt"

// StateTag is the coordinator's position in the common state sequence
// named in §4.4:
//
//	Init -> CommitAB -> RevealAB -> CoreArb -> Funding -> Locked ->
//	AccLocked -> BuyProcedureSignature -> SwapEnd(outcome)
//
// Its ordinal value is written into every checkpoint (§4.5) and must
// never decrease across successive checkpoints for the same swap.
type StateTag uint8

const (
	StateInit StateTag = iota
	StateCommitAB
	StateRevealAB
	StateCoreArb
	StateFunding
	StateLocked
	StateAccLocked
	StateBuyProcedureSignature
	StateSwapEnd
)

func (s StateTag) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateCommitAB:
		return "CommitAB"
	case StateRevealAB:
		return "RevealAB"
	case StateCoreArb:
		return "CoreArb"
	case StateFunding:
		return "Funding"
	case StateLocked:
		return "Locked"
	case StateAccLocked:
		return "AccLocked"
	case StateBuyProcedureSignature:
		return "BuyProcedureSignature"
	case StateSwapEnd:
		return "SwapEnd"
	default:
		return "unknown"
	}
}

// Outcome distinguishes the five ways a swap can end, valid only once
// StateTag is StateSwapEnd.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeCancel
	OutcomeRefund
	OutcomePunish
	OutcomeAbort
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeCancel:
		return "cancel"
	case OutcomeRefund:
		return "refund"
	case OutcomePunish:
		return "punish"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// State is the coordinator's in-memory position for one swap: the tag
// and the terminal outcome (if any). Everything else a transition needs
// (lock/cancel confirmations, final_txs) is owned by syncer.State.
type State struct {
	Tag     StateTag
	Outcome Outcome
}

// advance moves to the next tag in the common sequence, refusing to
// go backwards — the monotonic-checkpoint invariant named in §4.4.
func (s *State) advance(next StateTag) error {
	if next < s.Tag {
		return fmt.Errorf("coordinator: state regression %s -> %s", s.Tag, next)
	}
	s.Tag = next
	return nil
}

// end moves to SwapEnd with the given outcome.
func (s *State) end(outcome Outcome) {
	s.Tag = StateSwapEnd
	s.Outcome = outcome
}
