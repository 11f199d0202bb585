// SPDX-License-Identifier: MPL-2.0

package respawn

// Outcome is the terminal result of one update attempt. It exists only for
// the duration of one Relaunch call; nothing is persisted across attempts.
type Outcome int

const (
	// OutcomeFailed indicates the attempt ended in an error. The error
	// returned alongside it distinguishes the failure kind.
	OutcomeFailed Outcome = 0

	// OutcomeNoUpdate indicates the latest published version is not newer
	// than the running one. Equal versions never prompt.
	OutcomeNoUpdate Outcome = 1

	// OutcomeDeclined indicates a newer version exists but the confirmation
	// function returned false. Nothing was installed.
	OutcomeDeclined Outcome = 2

	// OutcomeSkippedNotFromPath indicates the check was skipped because the
	// binary was not invoked via $PATH and Options.RequireFromPath was set.
	// No network request was made.
	OutcomeSkippedNotFromPath Outcome = 3

	// OutcomeRelaunched indicates the update was installed and the process
	// was restarted. With the default Restarter this value is only observed
	// by callers that inject a non-terminating Restarter: a real restart
	// replaces the process image and Relaunch never returns.
	OutcomeRelaunched Outcome = 4
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeNoUpdate:
		return "no update available"
	case OutcomeDeclined:
		return "declined by user"
	case OutcomeSkippedNotFromPath:
		return "skipped (not invoked via PATH)"
	case OutcomeRelaunched:
		return "updated and relaunched"
	}
	return "unknown"
}
