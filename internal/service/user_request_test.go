package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

func TestCreateUserRequestValidate(t *testing.T) {
	valid := CreateUserRequest{Name: "Ann", Email: "ann@example.com", Password: "secret123"}.Normalize()
	assert.True(t, valid.Validate().OK)
	assert.Equal(t, models.RoleGuest, valid.Role)
	assert.Equal(t, models.StatusActive, valid.Status)

	res := CreateUserRequest{Name: "Ann", Email: "ann@example.com", Password: "secret123", Status: "Archived"}.Normalize().Validate()
	assert.False(t, res.OK)
	assert.Equal(t, []FieldError{{Field: "status", Message: "must be one of: Active, Inactive, Pending"}}, res.Fields)
}

func TestCreateUserRequestBlankAvatarIsDropped(t *testing.T) {
	blank := "   "
	req := CreateUserRequest{Name: "Ann", Email: "ann@example.com", Password: "secret123", Avatar: &blank}.Normalize()

	assert.Nil(t, req.Avatar)
	assert.True(t, req.Validate().OK)
}

func TestUpdateUserRequestValidatesOnlySuppliedFields(t *testing.T) {
	assert.True(t, UpdateUserRequest{}.Validate().OK)
	assert.True(t, UpdateUserRequest{}.Empty())

	res := UpdateUserRequest{Email: ptr("nope"), Avatar: ptr(strings.Repeat("a", 2049))}.Validate()
	assert.False(t, res.OK)
	assert.Equal(t, []FieldError{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "avatar", Message: "must be at most 2048 characters"},
	}, res.Fields)
}

func TestCreateUserRequestAcceptsShortPasswordAndRelativeAvatar(t *testing.T) {
	res := CreateUserRequest{Name: "Ann", Email: "ann@example.com", Password: "abc", Avatar: ptr("/img/ann.png")}.Normalize().Validate()
	assert.True(t, res.OK, "%v", res.Fields)

	assert.True(t, UpdateUserRequest{Avatar: ptr("avatars/ann.png")}.Validate().OK)
}

func TestCreateUserRequestRejectsPasswordPastBcryptLimit(t *testing.T) {
	res := CreateUserRequest{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("x", 73)}.Normalize().Validate()
	assert.False(t, res.OK)
	assert.Equal(t, []FieldError{{Field: "password", Message: "must be at most 72 characters"}}, res.Fields)
}

func TestValidationResultErr(t *testing.T) {
	assert.NoError(t, ValidationResult{OK: true}.Err("ignored"))
	assert.Error(t, ValidationResult{Fields: []FieldError{{Field: "name", Message: "is required"}}}.Err("bad"))
}
