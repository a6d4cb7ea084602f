package memory_test

import (
	"testing"

	"github.com/aretw0/tutor/pkg/adapters/memory"
	"github.com/aretw0/tutor/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}
