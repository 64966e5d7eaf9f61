package gateway

import (
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conv(specs ...[2]string) conversation.Conversation {
	ret := conversation.Conversation{}
	for _, spec := range specs {
		ret = append(ret, conversation.NewMessage(conversation.Role(spec[0]), spec[1]))
	}
	return ret
}

func contents(msgs conversation.Conversation) []string {
	ret := []string{}
	for _, m := range msgs {
		ret = append(ret, m.Content)
	}
	return ret
}

func TestTruncateContextKeepsSystemAndRecent(t *testing.T) {
	msgs := conv(
		[2]string{"system", "sys"},
		[2]string{"user", "m1"},
		[2]string{"assistant", "m2"},
		[2]string{"user", "m3"},
		[2]string{"assistant", "m4"},
		[2]string{"user", "m5"},
	)

	got := TruncateContext(msgs, 2)
	assert.Equal(t, []string{"sys", "m4", "m5"}, contents(got))
}

func TestTruncateContextUnderLimit(t *testing.T) {
	msgs := conv(
		[2]string{"user", "m1"},
		[2]string{"assistant", "m2"},
	)
	got := TruncateContext(msgs, 10)
	require.Len(t, got, 2)
}

func TestTruncateContextNoBound(t *testing.T) {
	msgs := conv(
		[2]string{"user", "m1"},
		[2]string{"assistant", "m2"},
		[2]string{"user", "m3"},
	)
	assert.Len(t, TruncateContext(msgs, 0), 3)
	assert.Len(t, TruncateContext(msgs, -1), 3)
}

func TestTruncateContextSystemInMiddle(t *testing.T) {
	msgs := conv(
		[2]string{"user", "m1"},
		[2]string{"system", "sys"},
		[2]string{"user", "m2"},
		[2]string{"user", "m3"},
	)
	got := TruncateContext(msgs, 1)
	assert.Equal(t, []string{"sys", "m3"}, contents(got))
}
