package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopd/shopd/internal/apperr"
	"github.com/shopd/shopd/internal/audit"
)

type fakeStore struct {
	byEmail map[string]*User
}

func (f *fakeStore) Create(_ context.Context, u *User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return apperr.Invalid("user already exists")
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

type fakeRecorder struct{ entries []*audit.Entry }

func (f *fakeRecorder) Record(_ context.Context, e *audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newSvc() (*Service, *fakeStore, *fakeRecorder) {
	store := &fakeStore{byEmail: map[string]*User{}}
	rec := &fakeRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, rec, log), store, rec
}

func TestRegister(t *testing.T) {
	svc, store, _ := newSvc()

	u, err := svc.Register(context.Background(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ana", u.Name)

	// password is stored hashed, never verbatim
	stored := store.byEmail["ana@example.com"]
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newSvc()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@b.com", "secret1")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	_, err = svc.Register(ctx, "Ana", "a@b.com", "short")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "at least 6")
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _ := newSvc()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Ana Two", "ana@example.com", "secret2")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "already exists")
}

func TestLoginSuccessRecordsAudit(t *testing.T) {
	svc, _, rec := newSvc()
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "ana@example.com", "secret1", LoginMeta{IPAddress: "10.0.0.1", UserAgent: "cli"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.True(t, e.Success)
	assert.Equal(t, audit.ActionLogin, e.Action)
	assert.Equal(t, u.ID, e.UserID)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "cli", e.UserAgent)
}

// Unknown email and wrong password must be indistinguishable to the
// caller, while the audit trail records the real reason.
func TestLoginFailuresAreGeneric(t *testing.T) {
	svc, _, rec := newSvc()
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "ghost@example.com", "whatever", LoginMeta{})
	_, errWrongPw := svc.Login(ctx, "ana@example.com", "wrong", LoginMeta{})

	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(errUnknown))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(errWrongPw))
	assert.Equal(t, apperr.Message(errUnknown), apperr.Message(errWrongPw))

	require.Len(t, rec.entries, 2)
	assert.False(t, rec.entries[0].Success)
	assert.Equal(t, "user does not exist", rec.entries[0].Details)
	assert.Empty(t, rec.entries[0].UserID)
	assert.False(t, rec.entries[1].Success)
	assert.Equal(t, "wrong password", rec.entries[1].Details)
	assert.NotEmpty(t, rec.entries[1].UserID)
}

func TestLoginMissingFields(t *testing.T) {
	svc, _, rec := newSvc()
	_, err := svc.Login(context.Background(), "", "", LoginMeta{})
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Empty(t, rec.entries)
}
