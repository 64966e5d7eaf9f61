package conversation

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrMessageNotFound = errors.New("message not found on trunk")
	ErrNotForked       = errors.New("message has no recorded branches")
	ErrBadBranchIndex  = errors.New("branch index out of range")
	ErrNotAssistant    = errors.New("only assistant messages can be regenerated")
)

// position returns the trunk index of id, or -1. Callers hold the guard.
func (s *Session) position(id NodeID) int {
	for i, m := range s.Trunk {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// SubmitUserMessage appends msg to the trunk and, when withSlot is true,
// appends a fresh assistant slot in requested state. The returned slot is
// nil otherwise. Starting the actual generation is the controller's job.
func (s *Session) SubmitUserMessage(msg *Message, withSlot bool) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Trunk = append(s.Trunk, msg)
	if !withSlot {
		return nil
	}
	slot := NewMessage(RoleAssistant, "", WithGenerating())
	s.Trunk = append(s.Trunk, slot)
	log.Debug().
		Str("session_id", s.ID.String()).
		Str("message_id", msg.ID.String()).
		Str("slot_id", slot.ID.String()).
		Msg("submitted user message")
	return slot
}

// EditMessage replaces the message at targetID. The target and everything
// after it on the trunk are pushed, as one unit, into a new branch entry at
// that position; newMsg plus a fresh assistant slot become the active
// suffix. Prior alternates are never discarded. Any generation still
// streaming inside the archived suffix is cancelled.
func (s *Session) EditMessage(targetID NodeID, newMsg *Message) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.position(targetID)
	if p < 0 {
		return nil, errors.Wrap(ErrMessageNotFound, targetID.String())
	}

	suffix := s.detachSuffix(p)
	fork := suffix[0].Fork.record(suffix)
	newMsg.Fork = fork

	slot := NewMessage(RoleAssistant, "", WithGenerating())
	s.Trunk = append(s.Trunk, newMsg, slot)

	log.Debug().
		Str("session_id", s.ID.String()).
		Str("target_id", targetID.String()).
		Int("branch_count", fork.BranchCount()).
		Msg("edited message, previous continuation retained as branch")
	return slot, nil
}

// RegenerateMessage applies the same fork mechanics as EditMessage to an
// assistant message: the existing content and downstream become a branch and
// a fresh slot takes the same position, ready for a new generation over the
// unchanged upstream context.
func (s *Session) RegenerateMessage(targetID NodeID) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.position(targetID)
	if p < 0 {
		return nil, errors.Wrap(ErrMessageNotFound, targetID.String())
	}
	if s.Trunk[p].Role != RoleAssistant {
		return nil, ErrNotAssistant
	}

	suffix := s.detachSuffix(p)
	fork := suffix[0].Fork.record(suffix)

	slot := NewMessage(RoleAssistant, "", WithGenerating())
	slot.Fork = fork
	s.Trunk = append(s.Trunk, slot)

	log.Debug().
		Str("session_id", s.ID.String()).
		Str("target_id", targetID.String()).
		Int("branch_count", fork.BranchCount()).
		Msg("regenerating assistant message")
	return slot, nil
}

// ShiftBranch swaps the active suffix at targetID's fork with entry
// branchIndex. The previously active suffix becomes a stored entry itself, so
// shifting to a branch and back reproduces the original content exactly.
func (s *Session) ShiftBranch(targetID NodeID, branchIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.position(targetID)
	if p < 0 {
		return errors.Wrap(ErrMessageNotFound, targetID.String())
	}
	fork := s.Trunk[p].Fork
	if fork == nil {
		return ErrNotForked
	}
	if branchIndex < 0 || branchIndex >= len(fork.Entries) {
		return ErrBadBranchIndex
	}
	if branchIndex == fork.ActiveIndex {
		return nil
	}

	suffix := s.detachSuffix(p)
	incoming := fork.swap(suffix, branchIndex)
	s.Trunk = append(s.Trunk, incoming...)

	log.Debug().
		Str("session_id", s.ID.String()).
		Str("target_id", targetID.String()).
		Int("active_index", fork.ActiveIndex).
		Msg("shifted active branch")
	return nil
}

// StartNewThread archives the current trunk as a thread and clears the
// active context window. The thread name is filled in later by a
// best-effort naming generation.
func (s *Session) StartNewThread() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Trunk) == 0 {
		return nil
	}
	for _, m := range s.Trunk {
		m.Cancel()
	}
	thread := &Thread{
		ID:        NewNodeID(),
		CreatedAt: time.Now(),
		Messages:  s.Trunk,
	}
	s.Threads = append(s.Threads, thread)
	s.Trunk = nil
	log.Debug().
		Str("session_id", s.ID.String()).
		Str("thread_id", thread.ID.String()).
		Int("archived_messages", len(thread.Messages)).
		Msg("archived trunk into new thread")
	return thread
}

// detachSuffix removes trunk[p:] and returns it, cancelling any generation
// still streaming into it. Callers hold the guard.
func (s *Session) detachSuffix(p int) []*Message {
	suffix := make([]*Message, len(s.Trunk)-p)
	copy(suffix, s.Trunk[p:])
	s.Trunk = s.Trunk[:p]
	for _, m := range suffix {
		if m.Generating {
			m.Cancel()
		}
	}
	return suffix
}
