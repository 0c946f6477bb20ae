package domain

type ScreenMode string

const (
	ScreenConnecting   ScreenMode = "connecting"
	ScreenClassOffline ScreenMode = "class_offline"
	ScreenEntryGate    ScreenMode = "entry_gate"
	ScreenPoll         ScreenMode = "poll"
	ScreenChat         ScreenMode = "chat"
)

// Screen is the participant's derived interaction mode.
type Screen struct {
	Mode ScreenMode
	// PollLocked mirrors the classroom status within ScreenPoll: options are
	// visible but non-interactive.
	PollLocked bool
	// VoteConfirmed selects the confirmation sub-state within ScreenPoll,
	// regardless of lock state.
	VoteConfirmed bool
}

// DeriveScreen maps remote state to exactly one screen. It is a pure function
// and safe to re-evaluate on every individual snapshot arrival; classroom and
// poll snapshots arrive independently and may be momentarily ahead of each
// other.
//
// The evaluation order is fixed and significant: the offline check runs before
// everything else (including the entry gate), and the chat fallback is never
// reached while a poll-active condition holds.
func DeriveScreen(classroom *Classroom, poll *Poll, hasVoted, entered bool) Screen {
	if classroom == nil {
		return Screen{Mode: ScreenConnecting}
	}
	if !classroom.IsActive {
		return Screen{Mode: ScreenClassOffline}
	}
	if !entered {
		return Screen{Mode: ScreenEntryGate}
	}
	if (classroom.Status == ClassStatusVoting || classroom.Status == ClassStatusLocked) && poll != nil {
		return Screen{
			Mode:          ScreenPoll,
			PollLocked:    classroom.Status == ClassStatusLocked,
			VoteConfirmed: hasVoted,
		}
	}
	return Screen{Mode: ScreenChat}
}
