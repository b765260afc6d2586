package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"jane@example.com", true},
		{"jane.doe@mail.example.org", true},
		{"j_d-1@sub.domain.io", true},
		{"plainaddress", false},
		{"@example.com", false},
		{"jane@", false},
		{"jane@example", false},
		{"jane doe@example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidEmail(tc.email), "email %q", tc.email)
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		phone string
		min   int
		ok    bool
	}{
		{"9876543210", 10, true},
		{"+91 98765 43210", 10, true},
		{"+91-98765-43210", 10, true},
		{"98765", 10, false},
		{"98765", 5, true},
		{"abcdefghij", 10, false},
		{"98765x3210", 10, false},
		{"", 10, false},
		{"+", 10, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidPhone(tc.phone, tc.min), "phone %q min %d", tc.phone, tc.min)
	}
}
