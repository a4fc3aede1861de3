package service

import (
	"context"
	"strings"
	"testing"

	"estate/internal/auth"
	"estate/internal/cache"
	"estate/internal/filter"
	"estate/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create_HashesAndStartsInactive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.users.Create(ctx, CreateUserInput{
		Username: "alice", FirstName: "Alice", LastName: "Liddell",
		Email: "alice@example.com", Password: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)

	stored, err := h.store.Users().GetByID(ctx, res.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, stored.Status)
	assert.NotEqual(t, testPassword, stored.Password)
	assert.True(t, h.hasher.Verify(stored.Password, testPassword))
}

func TestUserService_Create_UniquenessLeavesNoWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "alice", false)
	before := h.count(t, &models.User{})

	res, err := h.users.Create(ctx, CreateUserInput{Username: "alice", Email: "fresh@example.com", Password: testPassword})
	assertDomainError(t, models.ErrUsernameTaken, res.Status, err)
	assert.Equal(t, before, h.count(t, &models.User{}))

	h.signup(t, "", false)
	var existing models.User
	require.NoError(t, h.db.Order("created_at").First(&existing).Error)

	res, err = h.users.Create(ctx, CreateUserInput{Username: "brand-new", Email: existing.Email, Password: testPassword})
	assertDomainError(t, models.ErrEmailTaken, res.Status, err)
}

func TestUserService_Create_WithoutUsername(t *testing.T) {
	h := newHarness(t)
	a := h.signup(t, "", false)
	b := h.signup(t, "", false)
	assert.Nil(t, a.Username)
	assert.Nil(t, b.Username)
}

func TestUserService_Login(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)
	h.signup(t, "dormant", false)

	tests := []struct {
		name     string
		in       LoginInput
		wantErr  *models.AppError
		wantUser bool
	}{
		{"success", LoginInput{Username: "alice", Password: testPassword}, nil, true},
		{"unknown user", LoginInput{Username: "nobody", Password: testPassword}, models.ErrLoginFailed, false},
		{"inactive user", LoginInput{Username: "dormant", Password: testPassword}, models.ErrLoginFailed, false},
		{"wrong password", LoginInput{Username: "alice", Password: "nope"}, models.ErrLoginFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.users.Login(ctx, tt.in)
			if tt.wantErr != nil {
				assertDomainError(t, tt.wantErr, res.Status, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alice.ID, res.Entity.User.ID)

			id, err := h.tokens.ParseAccessToken(res.Entity.Token)
			require.NoError(t, err)
			assert.Equal(t, alice.ID, id)
		})
	}
}

func TestUserService_ActivateDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.signup(t, "admin", true)
	user := h.signup(t, "target", false)

	res, err := h.users.Activate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, res.Entity.IsActive())

	res, err = h.users.Activate(ctx, user.ID)
	assertDomainError(t, models.ErrAlreadyActive, res.Status, err)

	res, err = h.users.Activate(ctx, uuid.New())
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)

	res, err = h.users.Deactivate(ctx, admin.ID, admin.ID)
	assertDomainError(t, models.ErrSelfDeactivationForbidden, res.Status, err)

	res, err = h.users.Deactivate(ctx, user.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, res.Entity.Status)

	_, err = h.users.Deactivate(ctx, user.ID, admin.ID)
	assert.NoError(t, err, "deactivating twice is allowed")

	res, err = h.users.Deactivate(ctx, uuid.New(), admin.ID)
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)
}

func TestUserService_Alter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)
	h.signup(t, "bob", true)

	res, err := h.users.Alter(ctx, AlterUserInput{ID: alice.ID, Username: "bob", Email: alice.Email})
	assertDomainError(t, models.ErrUsernameTaken, res.Status, err)

	res, err = h.users.Alter(ctx, AlterUserInput{
		ID: alice.ID, Username: "alice", FirstName: "Alicia", LastName: "L", Email: "alicia@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", res.Entity.FirstName)

	stored, err := h.store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia@example.com", stored.Email)
	assert.Equal(t, "alice", stored.UsernameValue(), "own username is not a collision")

	dormant := h.signup(t, "dormant", false)
	res, err = h.users.Alter(ctx, AlterUserInput{ID: dormant.ID, Email: dormant.Email})
	assertDomainError(t, models.ErrUserNotFound, res.Status, err)
}

func TestUserService_ResetPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)

	res, err := h.users.ResetPassword(ctx, ResetPasswordInput{ID: alice.ID, OldPassword: "wrong", NewPassword: "N3w-Password!x"})
	assertDomainError(t, models.ErrIncorrectPassword, res.Status, err)

	_, err = h.users.ResetPassword(ctx, ResetPasswordInput{ID: alice.ID, OldPassword: testPassword, NewPassword: "N3w-Password!x"})
	require.NoError(t, err)

	_, err = h.users.Login(ctx, LoginInput{Username: "alice", Password: "N3w-Password!x"})
	assert.NoError(t, err)
}

func TestUserService_ResetPasswordByID_MismatchWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)

	res, err := h.users.ResetPasswordByID(ctx, ResetPasswordInput{
		ID: alice.ID, OldPassword: testPassword, NewPassword: "One-Password1!", ConfirmPassword: "Two-Password1!",
	})
	assertDomainError(t, models.ErrPasswordMismatch, res.Status, err)

	_, err = h.users.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	assert.NoError(t, err, "old password still works")

	_, err = h.users.ResetPasswordByID(ctx, ResetPasswordInput{
		ID: alice.ID, OldPassword: testPassword, NewPassword: "One-Password1!", ConfirmPassword: "One-Password1!",
	})
	assert.NoError(t, err)
}

func TestUserService_ResetLinkFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)

	res, err := h.users.SendResetPasswordLink(ctx, "   ")
	assertDomainError(t, models.ErrMailEmpty, res.Status, err)

	res, err = h.users.SendResetPasswordLink(ctx, "ghost@example.com")
	assertDomainError(t, models.ErrEmailNotRegistered, res.Status, err)

	_, err = h.users.SendResetPasswordLink(ctx, alice.Email)
	require.NoError(t, err)

	sent := h.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, alice.Email, sent[0].To)

	const prefix = "https://estate.example/reset-password/"
	i := strings.Index(sent[0].Body, prefix)
	require.GreaterOrEqual(t, i, 0, sent[0].Body)
	token := strings.Fields(sent[0].Body[i+len(prefix):])[0]

	_, err = h.tokens.ParseAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid, "reset tokens do not open sessions")

	confirm, err := h.users.ConfirmPasswordReset(ctx, ConfirmResetInput{Token: "garbage", NewPassword: "a", ConfirmPassword: "a"})
	assertDomainError(t, models.ErrInvalidToken, confirm.Status, err)

	confirm, err = h.users.ConfirmPasswordReset(ctx, ConfirmResetInput{Token: token, NewPassword: "a", ConfirmPassword: "b"})
	assertDomainError(t, models.ErrPasswordMismatch, confirm.Status, err)

	_, err = h.users.ConfirmPasswordReset(ctx, ConfirmResetInput{Token: token, NewPassword: "Reset-Pass1!", ConfirmPassword: "Reset-Pass1!"})
	require.NoError(t, err)

	_, err = h.users.Login(ctx, LoginInput{Username: "alice", Password: "Reset-Pass1!"})
	assert.NoError(t, err)
}

func TestUserService_ListAndAutocomplete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		h.signup(t, "", true)
	}
	h.signup(t, "", false)

	res, err := h.users.ListUsers(ctx, ListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 12, res.Entity.Total)
	assert.Len(t, res.Entity.Items, filter.DefaultLength)
	assert.Equal(t, 1, res.Entity.Page)

	res, err = h.users.ListUsers(ctx, ListInput{Page: filter.Pagination{Start: 1}})
	require.NoError(t, err)
	assert.Len(t, res.Entity.Items, 2)

	res, err = h.users.ListUsers(ctx, ListInput{Filter: filter.Spec{"username": {Operator: "REGEX", Value: "x"}}})
	assert.Error(t, err)
	assert.Equal(t, 400, res.Status.Code)

	var someone models.User
	require.NoError(t, h.db.Where("status = ?", models.UserStatusActive).First(&someone).Error)
	found, err := h.users.Autocomplete(ctx, strings.ToUpper(someone.FirstName))
	require.NoError(t, err)
	assert.NotEmpty(t, found.Entity)
}

func TestUserService_ExistsPredicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)

	ok, err := h.users.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.users.ExistsByUsernameExcept(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.users.ExistsByEmail(ctx, alice.Email)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.users.ExistsByEmailExcept(ctx, alice.Email, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserService_Get_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	h := newHarness(t)
	ctx := context.Background()
	alice := h.signup(t, "alice", true)

	res, err := h.users.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, res.Entity.Email)
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))

	cached, err := mr.Get(cache.UserKey(alice.ID))
	require.NoError(t, err)
	assert.NotContains(t, cached, "password")

	_, err = h.users.Alter(ctx, AlterUserInput{ID: alice.ID, Username: "alice", Email: "new@example.com"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(alice.ID)), "writes invalidate the cached user")

	missing, err := h.users.Get(ctx, uuid.New())
	assertDomainError(t, models.ErrUserNotFound, missing.Status, err)
}
