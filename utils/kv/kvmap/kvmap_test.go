package kvmap

import (
	"context"
	"errors"
	"testing"

	"github.com/assessflow/assessflow/utils/kv"
)

func TestKVMap(t *testing.T) {
	ctx := context.Background()
	b := NewBucket()

	if _, err := b.Get(ctx, "missing"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, have: %v", err)
	}

	v := []byte("hello")
	if err := b.Set(ctx, "k", v); err != nil {
		t.Fatal(err)
	}
	v[0] = 'j'

	have, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if want := "hello"; string(have) != want {
		t.Errorf("have: %v, want: %v", string(have), want)
	}

	if found, _ := b.Has(ctx, "k"); !found {
		t.Error("expected key to exist")
	}

	if err = b.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if found, _ := b.Has(ctx, "k"); found {
		t.Error("expected key to be deleted")
	}
}
