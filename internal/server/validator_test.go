package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	t.Parallel()
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		msg   string
		valid bool
	}{
		{"ping", `{"type":"ping"}`, true},
		{"leave", `{"type":"leave"}`, true},
		{"join watcher", `{"type":"join","data":{"table":"main"}}`, true},
		{"join seat", `{"type":"join","data":{"table":"main","seat":3}}`, true},
		{"action", `{"type":"action","data":{"action":"raise","amount":40,"turn_id":7}}`, true},
		{"check", `{"type":"action","data":{"action":"check"}}`, true},
		{"not json", `{"type":`, false},
		{"unknown type", `{"type":"shout"}`, false},
		{"missing type", `{"data":{}}`, false},
		{"extra field", `{"type":"ping","id":1}`, false},
		{"join without table", `{"type":"join","data":{}}`, false},
		{"join seat out of range", `{"type":"join","data":{"table":"main","seat":10}}`, false},
		{"action without data", `{"type":"action"}`, false},
		{"unknown action", `{"type":"action","data":{"action":"shove"}}`, false},
		{"negative amount", `{"type":"action","data":{"action":"raise","amount":-5}}`, false},
		{"fractional amount", `{"type":"action","data":{"action":"raise","amount":1.5}}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate([]byte(tc.msg))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
