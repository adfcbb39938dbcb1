package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

func seedCatalog(t *testing.T, titles *Titles, admin policy.Actor) {
	t.Helper()

	catalog := NewCatalog(titles.db, testLogger())
	_, err := catalog.CreateCategory(admin, "Movies", "movies")
	require.NoError(t, err)
	_, err = catalog.CreateCategory(admin, "Books", "books")
	require.NoError(t, err)
	_, err = catalog.CreateGenre(admin, "Sci-Fi", "scifi")
	require.NoError(t, err)
	_, err = catalog.CreateGenre(admin, "Drama", "drama")
	require.NoError(t, err)
}

func TestTitleCreateResolvesSlugs(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()
	seedCatalog(t, titles, admin)

	category := "movies"
	created, err := titles.Create(admin, CreateTitleInput{
		Name:         "Solaris",
		Year:         1972,
		CategorySlug: &category,
		GenreSlugs:   []string{"scifi", "drama"},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Category)
	assert.Equal(t, "movies", created.Category.Slug)
	assert.Len(t, created.Genres, 2)
	assert.Nil(t, created.Rating)
}

func TestTitleCreateUnknownSlug(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()
	seedCatalog(t, titles, admin)

	_, err := titles.Create(admin, CreateTitleInput{
		Name:       "Solaris",
		Year:       1972,
		GenreSlugs: []string{"nosuch"},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	category := "nosuch"
	_, err = titles.Create(admin, CreateTitleInput{
		Name:         "Solaris",
		Year:         1972,
		CategorySlug: &category,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTitleYearNotInFuture(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	_, err := titles.Create(admin, CreateTitleInput{
		Name: "Too Soon",
		Year: time.Now().Year() + 1,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = titles.Create(admin, CreateTitleInput{
		Name: "Right On Time",
		Year: time.Now().Year(),
	})
	assert.NoError(t, err)
}

func TestTitleWritePolicy(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	user := createUser(t, gormDB, "alice", policy.RoleUser).Actor()

	_, err := titles.Create(user, CreateTitleInput{Name: "Solaris", Year: 1972})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = titles.Create(policy.Anonymous, CreateTitleInput{Name: "Solaris", Year: 1972})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	moderator := createUser(t, gormDB, "mod", policy.RoleModerator).Actor()
	_, err = titles.Create(moderator, CreateTitleInput{Name: "Solaris", Year: 1972})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestTitleRatingMean(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	reviews := NewReviews(gormDB, testLogger())

	title := createTitle(t, gormDB, "Solaris", 1972)

	got, err := titles.Get(title.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)

	for i, score := range []int{7, 8, 10} {
		u := createUser(t, gormDB, fmt.Sprintf("reviewer%d", i), policy.RoleUser)
		_, err := reviews.Create(u.Actor(), title.ID, "text", score)
		require.NoError(t, err)
	}

	got, err = titles.Get(title.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 25.0/3.0, *got.Rating, 1e-9)
}

func TestTitleListFilters(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()
	seedCatalog(t, titles, admin)

	movies := "movies"
	books := "books"
	mustCreate := func(input CreateTitleInput) {
		t.Helper()
		_, err := titles.Create(admin, input)
		require.NoError(t, err)
	}
	mustCreate(CreateTitleInput{Name: "Solaris", Year: 1972, CategorySlug: &movies, GenreSlugs: []string{"scifi"}})
	mustCreate(CreateTitleInput{Name: "Stalker", Year: 1979, CategorySlug: &movies, GenreSlugs: []string{"scifi", "drama"}})
	mustCreate(CreateTitleInput{Name: "Roadside Picnic", Year: 1972, CategorySlug: &books, GenreSlugs: []string{"scifi"}})

	listed, total, err := titles.List(TitleFilter{CategorySlug: "movies"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, listed, 2)

	listed, total, err = titles.List(TitleFilter{GenreSlug: "drama"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
	assert.Equal(t, "Stalker", listed[0].Name)

	_, total, err = titles.List(TitleFilter{Year: 1972}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	listed, total, err = titles.List(TitleFilter{Name: "road"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
	assert.Equal(t, "Roadside Picnic", listed[0].Name)

	_, total, err = titles.List(TitleFilter{CategorySlug: "movies", Year: 1979}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestTitleListPagination(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())

	for i := 0; i < 15; i++ {
		createTitle(t, gormDB, "Episode", 2000+i)
	}

	listed, total, err := titles.List(TitleFilter{}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, listed, 10)

	listed, total, err = titles.List(TitleFilter{}, Page{Number: 2, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, listed, 5)
}

func TestTitleUpdateReplacesGenres(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()
	seedCatalog(t, titles, admin)

	created, err := titles.Create(admin, CreateTitleInput{
		Name:       "Solaris",
		Year:       1972,
		GenreSlugs: []string{"scifi"},
	})
	require.NoError(t, err)

	genres := []string{"drama"}
	updated, err := titles.Update(admin, created.ID, UpdateTitleInput{GenreSlugs: &genres})
	require.NoError(t, err)
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, "drama", updated.Genres[0].Slug)

	name := "Solyaris"
	updated, err = titles.Update(admin, created.ID, UpdateTitleInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Solyaris", updated.Name)
	assert.Len(t, updated.Genres, 1)
}

func TestTitleDeleteCascades(t *testing.T) {
	gormDB := newTestDB(t)
	titles := NewTitles(gormDB, testLogger())
	reviews := NewReviews(gormDB, testLogger())
	comments := NewComments(gormDB, testLogger())

	admin := createUser(t, gormDB, "root", policy.RoleAdmin)
	title := createTitle(t, gormDB, "Solaris", 1972)
	review, err := reviews.Create(admin.Actor(), title.ID, "great", 7)
	require.NoError(t, err)
	_, err = comments.Create(admin.Actor(), title.ID, review.ID, "agreed")
	require.NoError(t, err)

	require.NoError(t, titles.Delete(admin.Actor(), title.ID))

	_, err = titles.Get(title.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	var reviewCount, commentCount int64
	require.NoError(t, gormDB.Model(&db.Review{}).Count(&reviewCount).Error)
	require.NoError(t, gormDB.Model(&db.Comment{}).Count(&commentCount).Error)
	assert.Zero(t, reviewCount)
	assert.Zero(t, commentCount)
}
