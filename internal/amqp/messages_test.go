package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeMessageJSON(t *testing.T) {
	msg := NewChangeMessage(EntityTransaction, "create", 42)
	require.False(t, msg.Timestamp.IsZero())

	data, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := ChangeMessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, EntityTransaction, got.Entity)
	assert.Equal(t, "create", got.Op)
	assert.Equal(t, int64(42), got.ID)
	assert.WithinDuration(t, msg.Timestamp, got.Timestamp, time.Second)
}

func TestChangeMessageFromJSON_Invalid(t *testing.T) {
	_, err := ChangeMessageFromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestChangeMessage_StateEventOmitsID(t *testing.T) {
	data, err := NewChangeMessage(EntityState, "restore", 0).ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"id"`)
}
