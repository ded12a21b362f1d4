package poll

import "github.com/danmuck/botectl/internal/observability"

func record(out Outcome) {
	observability.RecordPoll(out.State.String(), out.Attempts, out.Elapsed)
}
