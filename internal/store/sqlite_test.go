package store_test

import (
	"testing"

	"jobmate/tracker-service/internal/store"
	"jobmate/tracker-service/internal/store/storetest"
)

func TestSQLite(t *testing.T) {
	repositoryCases(t, func(t *testing.T) store.Store { return storetest.NewSQLite(t) })
}
