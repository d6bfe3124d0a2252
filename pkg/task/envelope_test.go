package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNewTask(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "plain", body: `{"description":"test"}`, want: "test"},
		{name: "unknown fields ignored", body: `{"description":"x","priority":3}`, want: "x"},
		{name: "empty description", body: `{"description":""}`, want: ""},
		{name: "unicode", body: `{"description":"café ☕"}`, want: "café ☕"},
		{name: "missing field", body: `{}`, wantErr: true},
		{name: "null description", body: `{"description":null}`, wantErr: true},
		{name: "wrong type", body: `{"description":5}`, wantErr: true},
		{name: "case sensitive", body: `{"Description":"x"}`, wantErr: true},
		{name: "not json", body: `not json`, wantErr: true},
		{name: "array", body: `[{"description":"x"}]`, wantErr: true},
		{name: "null", body: `null`, wantErr: true},
		{name: "trailing data", body: `{"description":"x"} {}`, wantErr: true},
		{name: "duplicate description", body: `{"description":"a","description":"b"}`, wantErr: true},
		{name: "duplicate null description", body: `{"description":"a","description":null}`, wantErr: true},
		{name: "duplicate unknown field", body: `{"x":1,"description":"a","x":2}`, want: "a"},
		{name: "nested duplicate", body: `{"description":"a","meta":{"k":1,"k":2}}`, want: "a"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeNewTask([]byte(tc.body))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Description)
		})
	}
}

func TestDecodeUpdateTask(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    UpdateTask
		wantErr bool
	}{
		{name: "empty object", body: `{}`, want: UpdateTask{}},
		{name: "completed", body: `{"completed":true}`, want: UpdateTask{Completed: boolPtr(true)}},
		{name: "explicit false", body: `{"completed":false}`, want: UpdateTask{Completed: boolPtr(false)}},
		{name: "description", body: `{"description":"new"}`, want: UpdateTask{Description: strPtr("new")}},
		{name: "explicit empty", body: `{"description":""}`, want: UpdateTask{Description: strPtr("")}},
		{name: "both", body: `{"description":"d","completed":true}`, want: UpdateTask{Description: strPtr("d"), Completed: boolPtr(true)}},
		{name: "null is absent", body: `{"description":null,"completed":null}`, want: UpdateTask{}},
		{name: "completed as string", body: `{"completed":"yes"}`, wantErr: true},
		{name: "description as bool", body: `{"description":true}`, wantErr: true},
		{name: "malformed", body: `{"completed":}`, wantErr: true},
		{name: "duplicate completed", body: `{"completed":true,"completed":false}`, wantErr: true},
		{name: "duplicate description", body: `{"description":"a","completed":true,"description":"b"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeUpdateTask([]byte(tc.body))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
