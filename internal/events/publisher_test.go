package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), AccountDeleted, "u1", nil))
	p.Emit(context.Background(), AccountDeleted, "u1", nil)
	assert.NoError(t, p.Close())
}

func TestEventEnvelope(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body, err := json.Marshal(Event{Type: AppointmentBooked, SubjectID: "a1", OccurredAt: at, Data: map[string]string{"status": "Pending"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"appointment.booked","subjectId":"a1","occurredAt":"2024-01-01T00:00:00Z","data":{"status":"Pending"}}`, string(body))
}
