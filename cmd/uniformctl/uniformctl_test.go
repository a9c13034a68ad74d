package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/internal/access/accesstest"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

const catalogYAML = `
categories:
  - name: Blazers
    description: Formal school blazers
  - name: Sportswear
schools:
  - name: Oakridge High
    slug: Oakridge-High
    location: Shelbyville
products:
  - name: Oakridge Blazer
    price: "59.99"
    school: oakridge-high
    category: blazers
    sizes: [S, M, L]
    colors: [Navy]
  - name: Generic Socks
    price: "4.50"
    category: Sportswear
    in_stock: false
`

func run(t *testing.T, conn *gorm.DB, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*gorm.DB, func(), error) {
		return conn, func() {}, nil
	}
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedLoadsCatalogOnce(t *testing.T) {
	conn := dbtest.Open(t)
	path := writeCatalog(t, catalogYAML)

	out, err := run(t, conn, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 categories, 1 schools, 2 products (0 already present)")

	var blazer models.Product
	require.NoError(t, conn.Where("name = ?", "Oakridge Blazer").First(&blazer).Error)
	require.NotNil(t, blazer.SchoolID)
	require.NotNil(t, blazer.CategoryID)
	assert.Equal(t, "59.99", blazer.Price.StringFixed(2))
	assert.True(t, blazer.InStock)

	var socks models.Product
	require.NoError(t, conn.Where("name = ?", "Generic Socks").First(&socks).Error)
	assert.Nil(t, socks.SchoolID)
	assert.False(t, socks.InStock)

	var school models.School
	require.NoError(t, conn.First(&school).Error)
	assert.Equal(t, "oakridge-high", school.Slug)

	out, err = run(t, conn, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 categories, 0 schools, 0 products (5 already present)")
}

func TestSeedRollsBackOnBadReference(t *testing.T) {
	conn := dbtest.Open(t)
	path := writeCatalog(t, `
categories:
  - name: Blazers
products:
  - name: Mystery Tie
    price: "9.00"
    category: Ties
`)

	_, err := run(t, conn, "seed", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "Ties"`)

	var count int64
	require.NoError(t, conn.Model(&models.Category{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSeedRejectsInvalidPrice(t *testing.T) {
	conn := dbtest.Open(t)
	path := writeCatalog(t, `
products:
  - name: Oakridge Blazer
    price: "abc"
`)

	_, err := run(t, conn, "seed", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid price")
}

func TestPromoteGrantsAdmin(t *testing.T) {
	conn := dbtest.Open(t)
	parent := accesstest.SeedUser(t, conn, "parent_1", enums.UserRoleUser)

	out, err := run(t, conn, "promote", "--email", " Parent_1@Example.com ")
	require.NoError(t, err)
	assert.Contains(t, out, "parent_1@example.com is now admin")

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", parent.ID).Error)
	assert.Equal(t, enums.UserRoleAdmin, reloaded.Role)

	out, err = run(t, conn, "promote", "--email", "parent_1@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "already has role admin")

	_, err = run(t, conn, "promote", "--email", "parent_1@example.com", "--demote")
	require.NoError(t, err)
	require.NoError(t, conn.First(&reloaded, "id = ?", parent.ID).Error)
	assert.Equal(t, enums.UserRoleUser, reloaded.Role)
}

func TestPromoteUnknownEmail(t *testing.T) {
	conn := dbtest.Open(t)

	_, err := run(t, conn, "promote", "--email", "ghost@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user with email ghost@example.com")

	_, err = run(t, conn, "promote")
	require.Error(t, err)
}
