package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/crm-admin-api/internal/models"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

const (
	ruleName   = "required,max=120"
	ruleEmail  = "required,email,max=254"
	ruleRole   = "oneof=Administrator Manager Employee Guest"
	ruleStatus = "oneof=Active Inactive Pending"
	ruleAvatar = "omitempty,max=2048"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// requestValidator reports field names by their JSON tag.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating a request.
type ValidationResult struct {
	OK     bool         `json:"ok"`
	Fields []FieldError `json:"fields,omitempty"`
}

// Err converts a failed result into a validation error carrying the fields.
func (r ValidationResult) Err(message string) error {
	if r.OK {
		return nil
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, message), r.Fields)
}

func (r *ValidationResult) add(field string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Fields = append(r.Fields, FieldError{Field: field, Message: err.Error()})
		return
	}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		r.Fields = append(r.Fields, FieldError{Field: name, Message: describe(fe)})
	}
}

func (r *ValidationResult) check(field string, value interface{}, rules string) {
	if err := requestValidator().Var(value, rules); err != nil {
		r.add(field, err)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

// CreateUserRequest is the payload for adding a directory record.
type CreateUserRequest struct {
	Name     string            `json:"name" validate:"required,max=120"`
	Email    string            `json:"email" validate:"required,email,max=254"`
	Password string            `json:"password" validate:"required,max=72"`
	Role     models.UserRole   `json:"role" validate:"omitempty,oneof=Administrator Manager Employee Guest"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=Active Inactive Pending"`
	Avatar   *string           `json:"avatar" validate:"omitempty,max=2048"`
}

// Normalize trims free text and fills in the role and status defaults.
func (r CreateUserRequest) Normalize() CreateUserRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Role == "" {
		r.Role = models.RoleGuest
	}
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	if r.Avatar = trimOptional(r.Avatar); r.Avatar != nil && *r.Avatar == "" {
		r.Avatar = nil
	}
	return r
}

// Validate checks every field and reports all failures together.
func (r CreateUserRequest) Validate() ValidationResult {
	res := ValidationResult{}
	if err := requestValidator().Struct(r); err != nil {
		res.add("", err)
	}
	res.OK = len(res.Fields) == 0
	return res
}

// UpdateUserRequest carries a partial update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name   *string            `json:"name"`
	Email  *string            `json:"email"`
	Role   *models.UserRole   `json:"role"`
	Status *models.UserStatus `json:"status"`
	// Avatar set to an empty string clears the stored avatar.
	Avatar *string `json:"avatar"`
}

// Normalize trims the supplied free text fields.
func (r UpdateUserRequest) Normalize() UpdateUserRequest {
	r.Name = trimOptional(r.Name)
	r.Email = trimOptional(r.Email)
	r.Avatar = trimOptional(r.Avatar)
	return r
}

// Validate checks the supplied fields only.
func (r UpdateUserRequest) Validate() ValidationResult {
	res := ValidationResult{}
	if r.Name != nil {
		res.check("name", *r.Name, ruleName)
	}
	if r.Email != nil {
		res.check("email", *r.Email, ruleEmail)
	}
	if r.Role != nil {
		res.check("role", string(*r.Role), "required,"+ruleRole)
	}
	if r.Status != nil {
		res.check("status", string(*r.Status), "required,"+ruleStatus)
	}
	if r.Avatar != nil {
		res.check("avatar", *r.Avatar, ruleAvatar)
	}
	res.OK = len(res.Fields) == 0
	return res
}

// Empty reports whether no field was supplied.
func (r UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Role == nil && r.Status == nil && r.Avatar == nil
}

// apply merges the supplied fields into u.
func (r UpdateUserRequest) apply(u *models.User) {
	if r.Name != nil {
		u.Name = *r.Name
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.Role != nil {
		u.Role = *r.Role
	}
	if r.Status != nil {
		u.Status = *r.Status
	}
	if r.Avatar != nil {
		if *r.Avatar == "" {
			u.Avatar = nil
		} else {
			avatar := *r.Avatar
			u.Avatar = &avatar
		}
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
