package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

func TestCatalogSlugValidation(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	for _, slug := range []string{"", "has space", "UPPER CASE!", "тест"} {
		_, err := catalog.CreateCategory(admin, "Movies", slug)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "slug %q", slug)
	}

	_, err := catalog.CreateCategory(admin, "Movies", "movies-2020")
	assert.NoError(t, err)
}

func TestCatalogSlugConflict(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	_, err := catalog.CreateCategory(admin, "Movies", "movies")
	require.NoError(t, err)
	_, err = catalog.CreateCategory(admin, "Films", "movies")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = catalog.CreateGenre(admin, "Sci-Fi", "scifi")
	require.NoError(t, err)
	_, err = catalog.CreateGenre(admin, "Science Fiction", "scifi")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCatalogWritePolicy(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	user := createUser(t, gormDB, "alice", policy.RoleUser).Actor()

	_, err := catalog.CreateCategory(user, "Movies", "movies")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = catalog.CreateGenre(policy.Anonymous, "Sci-Fi", "scifi")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	err = catalog.DeleteCategory(user, "movies")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCatalogListSearch(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	for _, pair := range [][2]string{{"Movies", "movies"}, {"Music", "music"}, {"Books", "books"}} {
		_, err := catalog.CreateCategory(admin, pair[0], pair[1])
		require.NoError(t, err)
	}

	listed, total, err := catalog.ListCategories("M", Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, listed, 2)
	// ordered by name
	assert.Equal(t, "Movies", listed[0].Name)
	assert.Equal(t, "Music", listed[1].Name)
}

func TestDeleteCategoryDetachesTitles(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	_, err := catalog.CreateCategory(admin, "Movies", "movies")
	require.NoError(t, err)
	slug := "movies"
	created, err := titles.Create(admin, CreateTitleInput{Name: "Solaris", Year: 1972, CategorySlug: &slug})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteCategory(admin, "movies"))

	got, err := titles.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.CategoryID)

	err = catalog.DeleteCategory(admin, "movies")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteGenreKeepsTitles(t *testing.T) {
	gormDB := newTestDB(t)
	catalog := NewCatalog(gormDB, testLogger())
	titles := NewTitles(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	_, err := catalog.CreateGenre(admin, "Sci-Fi", "scifi")
	require.NoError(t, err)
	created, err := titles.Create(admin, CreateTitleInput{Name: "Solaris", Year: 1972, GenreSlugs: []string{"scifi"}})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteGenre(admin, "scifi"))

	got, err := titles.Get(created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Genres)

	err = catalog.DeleteGenre(admin, "scifi")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
