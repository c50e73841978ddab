package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain json untouched",
			in:   `{"title": "Olá", "type": "chat"}`,
			want: `{"title": "Olá", "type": "chat"}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"title\": \"Olá\"}\n```",
			want: `{"title": "Olá"}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"title\": \"Olá\"}\n```",
			want: `{"title": "Olá"}`,
		},
		{
			name: "surrounding whitespace",
			in:   "  ```json\n{\"a\": 1}\n```  ",
			want: `{"a": 1}`,
		},
		{
			name: "fence inside text untouched",
			in:   "antes ```json\n{}\n``` depois",
			want: "antes ```json\n{}\n``` depois",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
