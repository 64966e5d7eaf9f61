package conversation

// Branch is one recorded downstream continuation at a fork point: the fork
// message itself plus everything that followed it on the trunk when it was
// archived. For the entry that is currently active, Messages is nil - the
// live content is the trunk suffix itself.
type Branch struct {
	Messages []*Message `json:"messages,omitempty"`
}

// Fork records every continuation ever produced at one trunk position, in
// creation order. Exactly one entry is active at a time (ActiveIndex); the
// others are retained so they can be swapped back in. Entries are never
// discarded.
//
// Swaps are pointer splices between the trunk suffix and an entry, so
// shifting branches is cheap and a shift-away/shift-back round trip
// reproduces the previous active content exactly.
type Fork struct {
	Entries     []Branch `json:"entries"`
	ActiveIndex int      `json:"activeIndex"`
}

// BranchCount returns the number of inactive retained continuations.
func (f *Fork) BranchCount() int {
	if f == nil {
		return 0
	}
	return len(f.Entries) - 1
}

// record archives the currently active suffix and makes room for a fresh
// continuation, returning the fork (allocating it when the position was not
// forked yet). The archived head loses its fork pointer; the fork is
// positional and travels with whichever message is live at that position.
func (f *Fork) record(activeSuffix []*Message) *Fork {
	if len(activeSuffix) > 0 {
		activeSuffix[0].Fork = nil
	}
	if f == nil {
		return &Fork{
			Entries:     []Branch{{Messages: activeSuffix}, {}},
			ActiveIndex: 1,
		}
	}
	f.Entries[f.ActiveIndex].Messages = activeSuffix
	f.Entries = append(f.Entries, Branch{})
	f.ActiveIndex = len(f.Entries) - 1
	return f
}

// swap exchanges the active trunk suffix with entry i and returns the newly
// active messages. The outgoing suffix takes the slot entry i occupied in
// the stored entries, keeping indices stable across round trips.
func (f *Fork) swap(activeSuffix []*Message, i int) []*Message {
	if len(activeSuffix) > 0 {
		activeSuffix[0].Fork = nil
	}
	incoming := f.Entries[i].Messages
	f.Entries[i].Messages = nil
	f.Entries[f.ActiveIndex].Messages = activeSuffix
	f.ActiveIndex = i
	if len(incoming) > 0 {
		incoming[0].Fork = f
	}
	return incoming
}
