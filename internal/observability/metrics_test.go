package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDepositPollErrorCounter(t *testing.T) {
	Init()

	before := testutil.ToFloat64(depositPollErrorCounter)
	IncrementDepositPollError()
	IncrementDepositPollError()
	assert.Equal(t, before+2, testutil.ToFloat64(depositPollErrorCounter))
}

func TestHelpersBeforeInitAreNoOps(t *testing.T) {
	// Collectors are package vars; helpers must tolerate a process that
	// never called Init (library use, tests of other packages).
	saved := depositPollErrorCounter
	depositPollErrorCounter = nil
	defer func() { depositPollErrorCounter = saved }()

	assert.NotPanics(t, func() { IncrementDepositPollError() })
}
