package updater

import (
	"testing"

	"github.com/spacemeshos/go-scale/tester"
)

func FuzzPollReplyConsistency(f *testing.F) {
	tester.FuzzConsistency[PollReply](f)
}

func FuzzPollReplySafety(f *testing.F) {
	tester.FuzzSafety[PollReply](f)
}

func FuzzContentRequestConsistency(f *testing.F) {
	tester.FuzzConsistency[ContentRequest](f)
}

func FuzzContentRequestSafety(f *testing.F) {
	tester.FuzzSafety[ContentRequest](f)
}

func FuzzContentResponseConsistency(f *testing.F) {
	tester.FuzzConsistency[ContentResponse](f)
}

func FuzzContentResponseSafety(f *testing.F) {
	tester.FuzzSafety[ContentResponse](f)
}
