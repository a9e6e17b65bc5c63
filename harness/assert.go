package harness

import (
	"fmt"

	"github.com/stretchr/testify/require"
)

// Assertion helpers are pure read-only queries over state accumulated by
// sessions during prior runs; they never mutate harness state and are safe to
// call any number of times.

// AssertAllTransferred asserts that every transferred flow file went to the
// named relationship, and, when a count is given, that exactly that many flow
// files were transferred there.
func (r *Runner) AssertAllTransferred(t require.TestingT, relationship string, count ...int) {
	for _, s := range r.sessions.CreatedSessions() {
		for rel, n := range s.TransferredRelationships() {
			if rel != relationship && n > 0 {
				require.Fail(t, "unexpected transfer",
					fmt.Sprintf("expected all flow files on %q, found %d on %q", relationship, n, rel))
			}
		}
	}

	if len(count) > 0 {
		r.AssertTransferCount(t, relationship, count[0])
	}
}

// AssertTransferCount asserts the number of flow files transferred to the
// named relationship. Unseen relationships count 0.
func (r *Runner) AssertTransferCount(t require.TestingT, relationship string, count int) {
	require.Equal(t, count, r.TransferCount(relationship),
		"transfer count for relationship %q", relationship)
}

// AssertQueueEmpty asserts the input queue holds no flow files.
func (r *Runner) AssertQueueEmpty(t require.TestingT) {
	require.True(t, r.IsQueueEmpty(), "expected input queue to be empty, %d queued", r.QueueSize())
}

// AssertQueueNotEmpty asserts the input queue holds at least one flow file.
func (r *Runner) AssertQueueNotEmpty(t require.TestingT) {
	require.False(t, r.IsQueueEmpty(), "expected input queue to hold flow files")
}

// AssertServiceValid asserts every validation result of the service's
// validate operation passes.
func (r *Runner) AssertServiceValid(t require.TestingT, identifier string) {
	results, err := r.services.Validate(identifier)
	require.NoError(t, err)

	for _, result := range results {
		if !result.Valid {
			require.Fail(t, "service expected to be valid",
				fmt.Sprintf("service %q invalid: %s", identifier, result.Explanation))
		}
	}
}

// AssertServiceNotValid asserts at least one validation result of the
// service's validate operation fails.
func (r *Runner) AssertServiceNotValid(t require.TestingT, identifier string) {
	results, err := r.services.Validate(identifier)
	require.NoError(t, err)

	for _, result := range results {
		if !result.Valid {
			return
		}
	}
	require.Fail(t, "service expected to be invalid",
		fmt.Sprintf("service %q reported no failing validation results", identifier))
}
