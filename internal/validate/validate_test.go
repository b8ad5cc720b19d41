package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,role"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	Password   string `json:"password" validate:"required,min=8"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Email: "a@b.co", Role: "student", Difficulty: "hard", Password: "longenough"})
	assert.NoError(t, err)
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(sample{Email: "nope", Role: "admin", Difficulty: "extreme"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	assert.Contains(t, verr.Fields, "email")
	assert.Equal(t, "must be teacher or student", verr.Fields["role"])
	assert.Equal(t, "must be easy, medium, or hard", verr.Fields["difficulty"])
	assert.Equal(t, "this field is required", verr.Fields["password"])
	assert.Contains(t, verr.Error(), "role: must be teacher or student")
}

func TestVar(t *testing.T) {
	assert.True(t, Var("medium", "difficulty"))
	assert.False(t, Var("impossible", "difficulty"))
	assert.True(t, Var("after_submission", "show_results"))
}
