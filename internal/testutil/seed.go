package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// Seed products: Mug (id 1, 500, qty 10), Teapot (id 2, 1000, qty 1), Spoon (id 3, 150, qty 0).
// Seed users: 1 and 2 are customers, 3 is an admin.
const (
	UserAna  int64 = 1
	UserBo   int64 = 2
	UserCy   int64 = 3
	Mug      int64 = 1
	Teapot   int64 = 2
	Spoon    int64 = 3
	MugPrice int64 = 500
)

// StorefrontSeed is the path of the shared seed script.
func StorefrontSeed(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed resolving testutil source path")
	}
	return filepath.Join(filepath.Dir(file), "seed", "storefront.seed.sql")
}
