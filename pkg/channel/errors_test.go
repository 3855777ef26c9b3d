package channel_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{name: "unknown is transient", err: boom, transient: true},
		{name: "deadline is transient", err: fmt.Errorf("send: %w", context.DeadlineExceeded), transient: true},
		{name: "marked permanent", err: channel.Permanent(boom), permanent: true},
		{name: "marked transient", err: channel.Transient(boom), transient: true},
		{name: "invalid message is permanent", err: fmt.Errorf("%w: no address", channel.ErrInvalidMessage), permanent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := channel.Classify(tt.err)
			assert.Equal(t, tt.transient, channel.IsTransient(got))
			assert.Equal(t, tt.permanent, channel.IsPermanent(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, channel.Classify(nil))
	assert.NoError(t, channel.Transient(nil))
	assert.NoError(t, channel.Permanent(nil))
}
