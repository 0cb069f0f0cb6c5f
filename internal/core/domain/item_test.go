package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemIDUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ItemID
		valid bool
	}{
		{"string", `{"id":"123"}`, "123", true},
		{"integer", `{"id":4567}`, "4567", true},
		{"null", `{"id":null}`, "", false},
		{"absent", `{}`, "", false},
		{"empty string", `{"id":""}`, "", false},
		{"numeric zero", `{"id":0}`, "", false},
		{"float zero", `{"id":0.0}`, "", false},
		{"string zero", `{"id":"0"}`, "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item Item
			err := json.Unmarshal([]byte(tt.input), &item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.ID)
			assert.Equal(t, tt.valid, item.ID.Valid())
		})
	}
}

func TestItemIDRejectsObjects(t *testing.T) {
	var item Item
	err := json.Unmarshal([]byte(`{"id":{"nested":true}}`), &item)
	assert.Error(t, err)
}

func TestSearchOutcomeConstructors(t *testing.T) {
	ok := Success(nil)
	assert.True(t, ok.OK())
	assert.NotNil(t, ok.Items)
	assert.Empty(t, ok.Items)

	api := APIFailure("bad keyword")
	assert.Equal(t, OutcomeAPIError, api.Kind)
	assert.Equal(t, "bad keyword", api.Detail())

	netErr := NetworkFailure(errors.New("dial tcp: timeout"))
	assert.Equal(t, OutcomeNetworkError, netErr.Kind)
	assert.Equal(t, "dial tcp: timeout", netErr.Detail())

	unexpected := UnexpectedFailure(errors.New("boom"))
	assert.False(t, unexpected.OK())
	assert.Equal(t, OutcomeUnexpectedError, unexpected.Kind)
}

func TestIncomingMessageSender(t *testing.T) {
	assert.Equal(t, "alice", IncomingMessage{SenderName: "alice", SenderID: "1"}.Sender())
	assert.Equal(t, "1", IncomingMessage{SenderID: "1"}.Sender())
	assert.Equal(t, "unknown", IncomingMessage{}.Sender())
}
