package user

import (
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func newValidator(t *testing.T) (*validator.Validate, func(err error) map[string]string) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	require.NoError(t, InitValidators(validate, translator))

	fields := func(err error) map[string]string {
		out := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				out[fe.Field()] = fe.Translate(translator)
			}
		}
		return out
	}
	return validate, fields
}

func TestCommonPasswordsLoaded(t *testing.T) {
	newValidator(t)
	assert.NotEmpty(t, commonPasswords)
	assert.True(t, sort.StringsAreSorted(commonPasswords))
}

func TestCheckPassword(t *testing.T) {
	newValidator(t)

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "ab1", want: pwdMinLenTag},
		{name: "too short in characters", pwd: "éééé", want: pwdMinLenTag},
		{name: "whitespace", pwd: "my secret", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "20210301", want: pwdNotAllNumTag},
		{name: "similar to username", pwd: "Johnny42", attrs: []string{"John Doe", "johnny4"}, want: pwdAttrSimTag},
		{name: "common", pwd: "PassW0rd", want: pwdNoCommonTag},
		{name: "valid", pwd: "Gr33n-Tea-Leaf", attrs: []string{"John Doe", "johnd", "john@doe.test"}},
		{name: "blank attrs ignored", pwd: "Gr33n-Tea-Leaf", attrs: []string{"", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate, fields := newValidator(t)

	tests := []struct {
		name string
		nu   NewUser
		want map[string]string
	}{
		{
			name: "missing fields",
			nu:   NewUser{},
			want: map[string]string{
				"name":             "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
				"username":         usernameOrEmailText,
				"email":            usernameOrEmailText,
			},
		},
		{
			name: "invalid fields",
			nu: NewUser{
				Name: "John", Username: "jo", Email: "nope", Password: "Gr33n-Tea-Leaf",
				PasswordConfirm: "other", Roles: []string{"teacher:", "wizard:"},
			},
			want: map[string]string{
				"username":         "username must be at least 3 characters in length",
				"email":            "email must be a valid email address",
				"password_confirm": "password_confirm must be equal to Password",
				"roles":            allRolesText,
			},
		},
		{
			name: "weak password",
			nu:   NewUser{Name: "John", Username: "john", Password: "123456", PasswordConfirm: "123456"},
			want: map[string]string{"password": pwdNotAllNumText},
		},
		{
			name: "valid",
			nu: NewUser{
				Name: "John", Username: "john", Email: "john@doe.test", Password: "Gr33n-Tea-Leaf",
				PasswordConfirm: "Gr33n-Tea-Leaf", Roles: []string{RoleTeacher},
			},
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fields(validate.Struct(tt.nu)))
		})
	}
}

func TestUpdateUserValidation(t *testing.T) {
	validate, fields := newValidator(t)

	pic := "data:image/png;base64,iVBORw0KGgo="
	badPic := "https://example.com/me.png"

	assert.Empty(t, fields(validate.Struct(UpdateUser{Name: "John", Picture: &pic})))
	assert.Equal(t,
		map[string]string{"picture": "picture must contain a valid Data URI"},
		fields(validate.Struct(UpdateUser{Picture: &badPic})),
	)
	assert.Equal(t,
		map[string]string{"password_confirm": "this field is required"},
		fields(validate.Struct(UpdateUser{Password: "Gr33n-Tea-Leaf"})),
	)
}

func TestResetUserPasswordValidation(t *testing.T) {
	validate, fields := newValidator(t)

	rp := ResetUserPassword{Token: "t", UID: "u", Password: "welcome1", PasswordConfirm: "welcome1"}
	assert.Equal(t, map[string]string{"password": pwdNoCommonText}, fields(rp.Validate(validate)))

	rp.Password, rp.PasswordConfirm = "Gr33n-Tea-Leaf", "Gr33n-Tea-Leaf"
	assert.NoError(t, rp.Validate(validate))
}
