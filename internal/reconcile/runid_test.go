package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	now := time.Date(2024, 5, 3, 9, 30, 15, 0, time.UTC)

	id, err := NewRunID(RunIDTimestamp, now)
	require.NoError(t, err)
	assert.Equal(t, "20240503093015", id)

	id, err = NewRunID("", now)
	require.NoError(t, err)
	assert.Equal(t, "20240503093015", id)

	id, err = NewRunID(RunIDUUID, now)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	_, err = NewRunID("sequence", now)
	assert.Error(t, err)
}
