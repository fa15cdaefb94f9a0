package store_test

import (
	"testing"

	"github.com/CARsoftAR/medicionProcesos/internal/store"
	"github.com/CARsoftAR/medicionProcesos/internal/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}
