package story

import (
	"context"
	"errors"
	"sync"
	"testing"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/notify"
	"talehub/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) recipients() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.RecipientID)
	}
	return out
}

type fakeUploader struct {
	url   string
	err   error
	paths []string
}

func (u *fakeUploader) Upload(_ context.Context, path string) (string, error) {
	u.paths = append(u.paths, path)
	return u.url, u.err
}

type fixture struct {
	store    *memory.Store
	engine   *Engine
	notes    *recorder
	uploader *fakeUploader
	alice    domain.Account
	bob      domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		notes:    &recorder{},
		uploader: &fakeUploader{url: "https://cdn.example.com/cover.png"},
	}
	f.engine = NewEngine(f.store, f.uploader, f.notes, "https://cdn.example.com/default.png")

	var err error
	ctx := context.Background()
	f.alice, err = f.store.CreateAccount(ctx, domain.NewAccount{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	f.bob, err = f.store.CreateAccount(ctx, domain.NewAccount{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	return f
}

func moonInput() CreateInput {
	return CreateInput{Title: "The Moon", Description: "a tale", Body: "once upon a time", Genre: "fantasy"}
}

func TestCreate_Owners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := moonInput()
	in.Owners = []string{" Bob ", "alice", "bob", ""}
	st, err := f.engine.Create(ctx, in, f.alice)
	require.NoError(t, err)

	assert.Equal(t, []uint{f.bob.ID, f.alice.ID}, st.Owners)
	assert.False(t, st.Editable)
	assert.Equal(t, "https://cdn.example.com/default.png", st.AvatarURL)
	assert.ElementsMatch(t, []uint{f.bob.ID, f.alice.ID}, f.notes.recipients())

	history, err := f.store.StoryHistory(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.StorySummary{{ID: st.ID, Title: "The Moon"}}, history)
}

func TestCreate_ActorAppended(t *testing.T) {
	f := newFixture(t)

	in := moonInput()
	in.Owners = []string{"bob"}
	st, err := f.engine.Create(context.Background(), in, f.alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bob.ID, f.alice.ID}, st.Owners)
}

func TestCreate_UnknownOwner(t *testing.T) {
	f := newFixture(t)

	in := moonInput()
	in.Owners = []string{"carol"}
	_, err := f.engine.Create(context.Background(), in, f.alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreate_DuplicateTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.Create(ctx, moonInput(), f.alice)
	require.NoError(t, err)

	other := moonInput()
	other.Description = "a different tale"
	_, err = f.engine.Create(ctx, other, f.bob)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.store.FindStoryByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a tale", got.Description)
	assert.Equal(t, []uint{f.alice.ID}, got.Owners)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	in := moonInput()
	in.Title = "   "
	_, err := f.engine.Create(context.Background(), in, f.alice)
	require.ErrorIs(t, err, apperr.ErrValidation)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "title", appErr.Field)
}

func TestCreate_WithImage(t *testing.T) {
	f := newFixture(t)

	in := moonInput()
	in.ImagePath = "/tmp/upload-123.png"
	st, err := f.engine.Create(context.Background(), in, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cover.png", st.AvatarURL)
	assert.Equal(t, []string{"/tmp/upload-123.png"}, f.uploader.paths)
}

func TestUpdateField_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	locked, err := f.engine.Create(ctx, moonInput(), f.alice)
	require.NoError(t, err)

	_, err = f.engine.UpdateField(ctx, locked.ID, domain.FieldTitle, "New Moon", f.alice)
	assert.ErrorIs(t, err, apperr.ErrNotEditable)

	open := moonInput()
	open.Title = "Open Book"
	open.Editable = true
	editable, err := f.engine.Create(ctx, open, f.alice)
	require.NoError(t, err)

	_, err = f.engine.UpdateField(ctx, editable.ID, domain.FieldTitle, "Stolen", f.bob)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := f.engine.UpdateField(ctx, editable.ID, domain.FieldTitle, "  Open Book II ", f.alice)
	require.NoError(t, err)
	assert.Equal(t, "Open Book II", updated.Title)
	assert.Equal(t, "a tale", updated.Description)
}

func TestUpdateField_Thumbnail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := moonInput()
	in.Editable = true
	st, err := f.engine.Create(ctx, in, f.alice)
	require.NoError(t, err)

	updated, err := f.engine.UpdateField(ctx, st.ID, domain.FieldThumbnail, "/tmp/new.png", f.alice)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cover.png", updated.AvatarURL)
}

func TestUpdateField_TitleConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, moonInput(), f.alice)
	require.NoError(t, err)
	in := moonInput()
	in.Title = "Sun"
	in.Editable = true
	sun, err := f.engine.Create(ctx, in, f.alice)
	require.NoError(t, err)

	_, err = f.engine.UpdateField(ctx, sun.ID, domain.FieldTitle, "The Moon", f.alice)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateField_BadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.UpdateField(ctx, 1, domain.StoryField("genre"), "x", f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.engine.UpdateField(ctx, 1, domain.FieldDescription, " ", f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.engine.UpdateField(ctx, 999, domain.FieldDescription, "x", f.alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_IgnoresEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.engine.Create(ctx, moonInput(), f.alice)
	require.NoError(t, err)
	require.False(t, st.Editable)

	assert.ErrorIs(t, f.engine.Delete(ctx, st.ID, f.bob), apperr.ErrForbidden)
	require.NoError(t, f.engine.Delete(ctx, st.ID, f.alice))

	_, err = f.engine.Get(ctx, st.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGet_RecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.engine.Create(ctx, moonInput(), f.alice)
	require.NoError(t, err)

	_, err = f.engine.Get(ctx, st.ID, f.bob.ID)
	require.NoError(t, err)

	history, err := f.store.StoryHistory(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Moonrise", "Blue Moon", "Sunset"} {
		in := moonInput()
		in.Title = title
		actor := f.alice
		if title == "Blue Moon" {
			actor = f.bob
		}
		_, err := f.engine.Create(ctx, in, actor)
		require.NoError(t, err)
	}

	_, err := f.engine.List(ctx, ListInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := f.engine.List(ctx, ListInput{Search: "moon"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, "Blue Moon", res.Stories[0].Title)
	assert.Empty(t, res.Stories[0].Body)

	res, err = f.engine.List(ctx, ListInput{Search: "ALL", SortType: "desc", Limit: 1, IncludeBody: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "Sunset", res.Stories[0].Title)
	assert.NotEmpty(t, res.Stories[0].Body)

	res, err = f.engine.List(ctx, ListInput{Search: "all", Username: "bob"})
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "Blue Moon", res.Stories[0].Title)

	res, err = f.engine.List(ctx, ListInput{Search: "all", Username: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, res.Stories)

	_, err = f.engine.List(ctx, ListInput{Search: "all", SortBy: "owners"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.engine.List(ctx, ListInput{Search: "all", SortType: "sideways"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
