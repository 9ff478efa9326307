package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableDecode(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue *int32
	}{
		{name: "absent", body: `{"title": "Requiem"}`},
		{name: "null", body: `{"pages": null}`, wantSet: true},
		{name: "value", body: `{"pages": 40}`, wantSet: true, wantValue: func() *int32 { n := int32(40); return &n }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body UpdateBookRequestBody
			require.NoError(t, json.Unmarshal([]byte(tt.body), &body))
			assert.Equal(t, tt.wantSet, body.Pages.Set)
			assert.Equal(t, tt.wantValue, body.Pages.Value)
		})
	}

	var body UpdateBookRequestBody
	assert.Error(t, json.Unmarshal([]byte(`{"pages": "many"}`), &body))
}

func TestNullableApply(t *testing.T) {
	current := int32(1889)
	year := &current

	Nullable[int32]{}.Apply(&year)
	require.NotNil(t, year)
	assert.Equal(t, int32(1889), *year)

	Nullable[int32]{Set: true}.Apply(&year)
	assert.Nil(t, year)
}
