package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	user, err := s.auth.Register(ctx, RegisterInput{
		Name:     "Ada",
		Email:    " Ada@Example.com ",
		Password: "correct horse",
		Role:     model.Instructor,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.Password)
	require.NotNil(t, user.Profile)
	assert.Equal(t, user.ID, user.Profile.UserID)

	var profiles int64
	require.NoError(t, s.db.Model(&model.UserProfile{}).Where("user_id = ?", user.ID).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"duplicate email", RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"}, util.ErrEmailRegistered},
		{"short password", RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "short"}, util.ErrValidation},
		{"admin self registration", RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password1", Role: model.Admin}, util.ErrValidation},
		{"missing name", RegisterInput{Email: "nobody@example.com", Password: "password1"}, util.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.auth.Register(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	student := testutil.CreateUser(t, s.db, model.Student)
	disabled := testutil.CreateUser(t, s.db, model.Student)
	require.NoError(t, s.db.Model(disabled).Update("disabled", true).Error)

	token, user, err := s.auth.Login(ctx, student.Email, testutil.Password)
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)

	claims, err := util.ParseJWT(token, s.auth.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, student.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"wrong password", student.Email, "wrong-password", util.ErrInvalidCredentials},
		{"unknown email", "ghost@example.com", testutil.Password, util.ErrInvalidCredentials},
		{"disabled user", disabled.Email, testutil.Password, util.ErrUserDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.auth.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, util.ErrPermissionDenied)
		})
	}

	var logins int64
	require.NoError(t, s.db.Model(&model.ActivityLog{}).
		Where("user_id = ? AND action = ?", student.ID, model.ActionLogin).
		Count(&logins).Error)
	assert.Equal(t, int64(1), logins)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	student := testutil.CreateUser(t, s.db, model.Student)
	instructor := testutil.CreateUser(t, s.db, model.Instructor)

	name := "Renamed"
	number := "S-001"
	department := "Physics"
	updated, err := s.users.UpdateProfile(ctx, student.ID, ProfileInput{
		Name:          &name,
		StudentNumber: &number,
		Department:    &department,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	require.NotNil(t, updated.Profile.StudentNumber)
	assert.Equal(t, "S-001", *updated.Profile.StudentNumber)
	assert.Empty(t, updated.Profile.Department)

	years := 7
	updated, err = s.users.UpdateProfile(ctx, instructor.ID, ProfileInput{Department: &department, YearsOfExperience: &years, StudentNumber: &number})
	require.NoError(t, err)
	assert.Equal(t, "Physics", updated.Profile.Department)
	assert.Nil(t, updated.Profile.StudentNumber)

	other := testutil.CreateUser(t, s.db, model.Student)
	_, err = s.users.UpdateProfile(ctx, other.ID, ProfileInput{StudentNumber: &number})
	assert.ErrorIs(t, err, util.ErrConflict)

	negative := -1
	_, err = s.users.UpdateProfile(ctx, instructor.ID, ProfileInput{YearsOfExperience: &negative})
	assert.ErrorIs(t, err, util.ErrValidation)

	profile, err := s.users.GetProfile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", profile.Name)

	_, err = s.users.GetProfile(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	user := testutil.CreateUser(t, s.db, model.Student)

	assert.ErrorIs(t, s.users.ChangePassword(ctx, user.ID, "wrong-old", "new-password"), util.ErrInvalidCredentials)
	assert.ErrorIs(t, s.users.ChangePassword(ctx, user.ID, testutil.Password, "short"), util.ErrValidation)
	require.NoError(t, s.users.ChangePassword(ctx, user.ID, testutil.Password, "new-password"))

	_, _, err := s.auth.Login(ctx, user.Email, "new-password")
	assert.NoError(t, err)
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	admin := testutil.CreateUser(t, s.db, model.Admin)
	student := testutil.CreateUser(t, s.db, model.Student)
	testutil.CreateUser(t, s.db, model.Instructor)

	page, err := s.users.ListUsers(ctx, repository.UserFilter{Role: model.Student}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	assert.ErrorIs(t, s.users.SetDisabled(ctx, admin.ID, admin.ID, true), util.ErrValidation)
	assert.ErrorIs(t, s.users.SetDisabled(ctx, admin.ID, 9999, true), util.ErrUserNotFound)
	require.NoError(t, s.users.SetDisabled(ctx, admin.ID, student.ID, true))

	disabled := true
	page, err = s.users.ListUsers(ctx, repository.UserFilter{Disabled: &disabled}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, _, err = s.auth.Login(ctx, student.Email, testutil.Password)
	assert.ErrorIs(t, err, util.ErrUserDisabled)
}
