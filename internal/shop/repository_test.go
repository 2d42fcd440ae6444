package shop

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/shop-api/internal/testutil"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var ignoreTimestamps = []cmp.Option{
	cmpopts.IgnoreFields(Shop{}, "Created", "LastModified"),
	cmpopts.IgnoreFields(Product{}, "Created", "LastModified"),
}

func TestRepository_ShopLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	created, err := repo.CreateShop(ctx, "", ShopInput{Name: "Corner Shop", Address: "Main St 1"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, created.Created, created.LastModified)

	got, err := repo.GetShop(ctx, created.ID)
	require.NoError(t, err)
	testutil.NoDiff(t, created, got, nil)

	exists, err := repo.ShopExists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	updated, err := repo.UpdateShop(ctx, created.ID, ShopInput{Name: "Corner Shop", Address: "Main St 2"})
	require.NoError(t, err)
	assert.Equal(t, "Main St 2", updated.Address)
	assert.Equal(t, created.Created, updated.Created)

	shops, total, err := repo.ListShops(ctx, FirstPage())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	testutil.NoDiff(t, []Shop{*updated}, shops, nil)

	require.NoError(t, repo.DeleteShop(ctx, created.ID))
	_, err = repo.GetShop(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err = repo.ShopExists(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_ShopNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	missing := "7d444840-9dc0-11d1-b245-5ffdce74fad2"

	_, err := repo.GetShop(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateShop(ctx, missing, ShopInput{Name: "x", Address: "y"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteShop(ctx, missing), ErrNotFound)
}

func TestRepository_CreateShopWithID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	id := "7d444840-9dc0-11d1-b245-5ffdce74fad2"

	s, err := repo.CreateShop(ctx, id, ShopInput{Name: "n", Address: "a"})
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
}

func TestRepository_Timestamps(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	repo.now = func() time.Time { return clock }

	s, err := repo.CreateShop(ctx, "", ShopInput{Name: "n", Address: "a"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC), s.Created)

	clock = clock.Add(time.Hour)
	updated, err := repo.UpdateShop(ctx, s.ID, ShopInput{Name: "n2", Address: "a"})
	require.NoError(t, err)
	assert.Equal(t, s.Created, updated.Created)
	assert.Equal(t, s.Created.Add(time.Hour), updated.LastModified)
}

func TestRepository_ProductLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	s, err := repo.CreateShop(ctx, "", ShopInput{Name: "n", Address: "a"})
	require.NoError(t, err)

	in := ProductInput{Name: "Tea", Description: "Green", Price: 3.5, Distributor: "Leaf Co"}
	p, err := repo.CreateProduct(ctx, s.ID, "", in)
	require.NoError(t, err)

	want := &Product{ID: p.ID, ShopID: s.ID, Name: "Tea", Description: "Green", Price: 3.5, Distributor: "Leaf Co"}
	testutil.NoDiff(t, want, p, ignoreTimestamps)

	got, err := repo.GetProduct(ctx, s.ID, p.ID)
	require.NoError(t, err)
	testutil.NoDiff(t, p, got, nil)

	in.Price = 4
	updated, err := repo.UpdateProduct(ctx, s.ID, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Price)

	products, total, err := repo.ListProducts(ctx, s.ID, FirstPage())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	testutil.NoDiff(t, []Product{*updated}, products, nil)

	require.NoError(t, repo.DeleteProduct(ctx, s.ID, p.ID))
	_, err = repo.GetProduct(ctx, s.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, s.ID, p.ID), ErrNotFound)
}

func TestRepository_ProductsAreScopedByShop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	a, err := repo.CreateShop(ctx, "", ShopInput{Name: "a", Address: "a"})
	require.NoError(t, err)
	b, err := repo.CreateShop(ctx, "", ShopInput{Name: "b", Address: "b"})
	require.NoError(t, err)

	p, err := repo.CreateProduct(ctx, a.ID, "", ProductInput{Name: "Tea", Distributor: "Leaf Co"})
	require.NoError(t, err)

	_, err = repo.GetProduct(ctx, b.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateProduct(ctx, b.ID, p.ID, ProductInput{Name: "x", Distributor: "y"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.CreateProduct(ctx, b.ID, p.ID, ProductInput{Name: "x", Distributor: "y"})
	assert.ErrorIs(t, err, ErrConflict)

	products, total, err := repo.ListProducts(ctx, b.ID, FirstPage())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, products)
}

func TestRepository_DeleteShopRemovesProducts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	s, err := repo.CreateShop(ctx, "", ShopInput{Name: "n", Address: "a"})
	require.NoError(t, err)
	p, err := repo.CreateProduct(ctx, s.ID, "", ProductInput{Name: "Tea", Distributor: "Leaf Co"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteShop(ctx, s.ID))

	// Recreating the shop must not bring the product back.
	_, err = repo.CreateShop(ctx, s.ID, ShopInput{Name: "n", Address: "a"})
	require.NoError(t, err)
	_, err = repo.GetProduct(ctx, s.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Ping(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRepository_ListShopsPaged(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 5; i++ {
		clock = clock.Add(time.Second)
		s, err := repo.CreateShop(ctx, "", ShopInput{Name: "n", Address: "a"})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	tests := []struct {
		page    Page
		wantIDs []string
	}{
		{Page{Number: 1, Size: 2}, ids[0:2]},
		{Page{Number: 2, Size: 2}, ids[2:4]},
		{Page{Number: 3, Size: 2}, ids[4:5]},
		{Page{Number: 4, Size: 2}, nil},
		{FirstPage(), ids},
	}

	for _, tt := range tests {
		shops, total, err := repo.ListShops(ctx, tt.page)
		require.NoError(t, err)
		assert.Equal(t, 5, total)

		var got []string
		for _, s := range shops {
			got = append(got, s.ID)
		}
		assert.Equal(t, tt.wantIDs, got, "page %d", tt.page.Number)
	}
}
