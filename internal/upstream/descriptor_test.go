package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Validate(t *testing.T) {
	d := &Descriptor{TargetURL: "https://api.example.com/v1/models"}
	require.NoError(t, d.Validate())
	assert.Equal(t, http.MethodPost, d.Method)

	d = &Descriptor{TargetURL: "https://api.example.com", Method: "get"}
	require.NoError(t, d.Validate())
	assert.Equal(t, http.MethodGet, d.Method)

	assert.ErrorIs(t, (&Descriptor{}).Validate(), ErrMissingTarget)
	assert.ErrorIs(t, (&Descriptor{TargetURL: "file:///etc/passwd"}).Validate(), ErrInvalidTarget)
	assert.ErrorIs(t, (&Descriptor{TargetURL: "not a url"}).Validate(), ErrInvalidTarget)
}

func TestDescriptor_WantsStream(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want bool
	}{
		{"accept header", Descriptor{Headers: map[string]string{"accept": "text/event-stream"}}, true},
		{"stream flag", Descriptor{Body: json.RawMessage(`{"model":"m","stream":true}`)}, true},
		{"stream false", Descriptor{Body: json.RawMessage(`{"stream":false}`)}, false},
		{"plain", Descriptor{Headers: map[string]string{"Accept": "application/json"}}, false},
		{"no body", Descriptor{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.WantsStream())
		})
	}
}

func TestDescriptor_NewRequest(t *testing.T) {
	d := &Descriptor{
		TargetURL: "https://api.example.com/v1/chat/completions",
		Headers:   map[string]string{"Authorization": "Bearer k"},
		Body:      json.RawMessage(`{"model":"m"}`),
	}
	require.NoError(t, d.Validate())

	req, err := d.NewRequest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer k", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"m"}`, string(body))

	d.Method = http.MethodGet
	req, err = d.NewRequest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, req.Body)
}

func TestDescriptor_NullBody(t *testing.T) {
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(`{"targetUrl":"https://api.example.com/v1/x","body":null}`), &d))
	require.NoError(t, d.Validate())
	assert.False(t, d.HasBody())
	assert.False(t, d.WantsStream())

	req, err := d.NewRequest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, req.Body)
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestIsEventStream(t *testing.T) {
	assert.True(t, IsEventStream("text/event-stream; charset=utf-8"))
	assert.False(t, IsEventStream("application/json"))
}
