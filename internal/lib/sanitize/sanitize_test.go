package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	s := New(0)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Ahmed Ali", "Ahmed Ali"},
		{"arabic", "  محمد   العتيبي ", "محمد العتيبي"},
		{"script removed", `Ahmed<script>alert(1)</script>`, "Ahmed"},
		{"tags stripped", `<b>INV</b>-<i>001</i>`, "INV-001"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Text(tt.in))
		})
	}
}

func TestText_Truncates(t *testing.T) {
	s := New(5)
	assert.Equal(t, "أبجده", s.Text("أبجدهوز"))
	assert.Equal(t, DefaultMaxLength, len(New(0).Text(strings.Repeat("a", 2000))))
}

func TestEmail(t *testing.T) {
	s := New(0)
	assert.Equal(t, "admin@example.com", s.Email("  Admin@Example.COM "))
}
