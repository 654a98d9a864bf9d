package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoller_InvalidSchedule(t *testing.T) {
	f := setupFixture(t)
	p := f.pipeline(t, testParser{}, newTestMailbox())

	_, err := NewPoller(p, "not a schedule")
	assert.Error(t, err)
}

func TestPoller_PollAndStop(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox(testEmails()...)
	p := f.pipeline(t, testParser{}, mb)

	poller, err := NewPoller(p, "@every 1h")
	require.NoError(t, err)
	poller.Start()
	poller.Start()

	poller.poll()
	assert.Equal(t, []uint32{1}, mb.seenUIDs())

	poller.Stop()
	poller.Stop()
}
