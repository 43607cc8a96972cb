package domain_test

import (
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	all := []domain.Status{domain.StatusPending, domain.StatusApproved, domain.StatusDeclined, domain.StatusAborted}

	t.Run("pending moves to every terminal status", func(t *testing.T) {
		for _, target := range []domain.Status{domain.StatusApproved, domain.StatusDeclined, domain.StatusAborted} {
			assert.NoError(t, domain.StatusPending.CanTransitionTo(target), target)
		}
	})

	t.Run("pending to pending is illegal", func(t *testing.T) {
		err := domain.StatusPending.CanTransitionTo(domain.StatusPending)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeIllegalTransition))
	})

	t.Run("terminal statuses never move", func(t *testing.T) {
		for _, from := range []domain.Status{domain.StatusApproved, domain.StatusDeclined, domain.StatusAborted} {
			require.True(t, from.IsTerminal())
			for _, target := range all {
				err := from.CanTransitionTo(target)
				assert.True(t, domain.IsErrorCode(err, domain.ErrCodeIllegalTransition), "%s -> %s", from, target)
			}
		}
	})
}

func TestParseStatus(t *testing.T) {
	s, err := domain.ParseStatus("declined")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, s)

	_, err = domain.ParseStatus("captured")
	assert.Error(t, err)
}
