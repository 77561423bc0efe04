package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	type input struct {
		Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
		Email    string `json:"email" validate:"required,email"`
		Rating   int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	}

	v := NewValidator()

	resp := v.Validate(&input{Username: "ok123", Email: "ok@example.com", Rating: 3})
	assert.Nil(t, resp)

	resp = v.Validate(&input{Username: "x", Email: "nope", Rating: 9})
	require.NotNil(t, resp)
	require.Len(t, resp.Errors, 3)

	fields := make(map[string]string)
	for _, e := range resp.Errors {
		fields[e.Field] = e.Msg
	}
	assert.Equal(t, "username must be at least 3", fields["username"])
	assert.Equal(t, "email must be a valid email address", fields["email"])
	assert.Equal(t, "rating must be at most 5", fields["rating"])
}

func TestContains(t *testing.T) {
	exts := []string{".jpg", ".jpeg", ".png"}
	assert.True(t, Contains(exts, ".png"))
	assert.False(t, Contains(exts, ".gif"))
}
