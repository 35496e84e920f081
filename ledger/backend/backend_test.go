package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tplgcmm "github.com/TopiaNetwork/blockproducer/ledger/backend/common"
	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
)

func testLogger() tplog.Logger {
	log, _ := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.DiscardOutput, "")
	return log
}

type backendFactory func(t *testing.T) Backend

func allBackends() map[string]backendFactory {
	open := func(bt BackendType, onDisk bool) backendFactory {
		return func(t *testing.T) Backend {
			path := ""
			if onDisk {
				path = t.TempDir()
			}
			b, err := NewBackend(bt, testLogger(), path, "unit", 16)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		}
	}

	return map[string]backendFactory{
		"badger-mem":   open(BackendType_Badger, false),
		"badger-disk":  open(BackendType_Badger, true),
		"leveldb-mem":  open(BackendType_Leveldb, false),
		"leveldb-disk": open(BackendType_Leveldb, true),
		"memdb":        open(BackendType_Memdb, false),
	}
}

func collect(t *testing.T, it tplgcmm.Iterator) []string {
	defer it.Close()
	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key())+"="+string(it.Value()))
	}
	require.NoError(t, it.Error())
	return keys
}

func TestBackendGetSetDelete(t *testing.T) {
	for name, factory := range allBackends() {
		t.Run(name, func(t *testing.T) {
			b := factory(t)

			_, err := b.Get([]byte("a"))
			assert.ErrorIs(t, err, tplgcmm.ErrKeyNotFound)

			require.NoError(t, b.Set([]byte("a"), []byte("1")))
			v, err := b.Get([]byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			require.NoError(t, b.Set([]byte("a"), []byte("2")))
			v, err = b.Get([]byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), v)

			has, err := b.Has([]byte("a"))
			require.NoError(t, err)
			assert.True(t, has)

			require.NoError(t, b.Delete([]byte("a")))
			has, err = b.Has([]byte("a"))
			require.NoError(t, err)
			assert.False(t, has)

			assert.ErrorIs(t, b.Set(nil, []byte("x")), tplgcmm.ErrKeyEmpty)
			assert.ErrorIs(t, b.Set([]byte("k"), nil), tplgcmm.ErrValueNil)
		})
	}
}

func TestBackendBatchAndSnapshot(t *testing.T) {
	for name, factory := range allBackends() {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			require.NoError(t, b.Set([]byte("k1"), []byte("old")))

			snap, err := b.Snapshot()
			require.NoError(t, err)

			batch := b.NewBatch()
			require.NoError(t, batch.Set([]byte("k1"), []byte("new")))
			require.NoError(t, batch.Set([]byte("k2"), []byte("v2")))
			require.NoError(t, batch.Delete([]byte("k3")))

			_, err = b.Get([]byte("k2"))
			assert.ErrorIs(t, err, tplgcmm.ErrKeyNotFound)

			require.NoError(t, batch.Write())
			require.NoError(t, batch.Close())
			assert.ErrorIs(t, batch.Write(), tplgcmm.ErrBatchClosed)

			v, err := b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), v)

			old, err := snap.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("old"), old)
			_, err = snap.Get([]byte("k2"))
			assert.ErrorIs(t, err, tplgcmm.ErrKeyNotFound)
			snap.Discard()
		})
	}
}

func TestBackendIterator(t *testing.T) {
	for name, factory := range allBackends() {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			for _, k := range []string{"b", "a", "d", "c"} {
				require.NoError(t, b.Set([]byte(k), []byte(k+k)))
			}

			it, err := b.Iterator([]byte("b"), []byte("d"))
			require.NoError(t, err)
			assert.Equal(t, []string{"b=bb", "c=cc"}, collect(t, it))

			it, err = b.Iterator(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"a=aa", "b=bb", "c=cc", "d=dd"}, collect(t, it))
		})
	}
}

func TestBackendPrefixed(t *testing.T) {
	for name, factory := range allBackends() {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			state := NewBackendPrefixed([]byte("s/"), b)
			blocks := NewBackendPrefixed([]byte("b/"), b)

			require.NoError(t, state.Set([]byte("x"), []byte("1")))
			require.NoError(t, blocks.Set([]byte("x"), []byte("2")))

			v, err := state.Get([]byte("x"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			raw, err := b.Get([]byte("b/x"))
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), raw)

			batch := state.NewBatch()
			require.NoError(t, batch.Set([]byte("y"), []byte("3")))
			require.NoError(t, batch.Write())

			it, err := state.Iterator(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"x=1", "y=3"}, collect(t, it))

			snap, err := blocks.Snapshot()
			require.NoError(t, err)
			defer snap.Discard()
			sit, err := snap.Iterator(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"x=2"}, collect(t, sit))
		})
	}
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend(BackendType_Unknown, testLogger(), "", "unit", 0)
	assert.Error(t, err)
	assert.Equal(t, BackendType_Memdb, BackendType_Unknown.Value("memdb"))
}
