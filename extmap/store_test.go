package extmap

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prefixmap/codec"
)

func storeMap(t *testing.T, ts []string, blockSize int) string {
	t.Helper()
	m, err := BuildStrings(ts, blockSize)
	require.NoError(t, err)
	base := filepath.Join(t.TempDir(), "map")
	require.NoError(t, m.Store(base))
	return base
}

func TestStoreOpenRoundTrip(t *testing.T) {
	t.Parallel()

	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	ts := randomCorpus(rng, 500)
	base := storeMap(t, ts, 32)

	m, err := Open(base)
	require.NoError(t, err)
	defer m.Close()
	requireTerms(t, m, ts)

	// Queries behave identically to the freshly built map.
	for q := 0; q < 50; q++ {
		s := ts[rng.Intn(len(ts))]
		idx, err := m.IndexOf(s)
		require.NoError(t, err)
		require.Equal(t, ts[idx], s)

		iv, err := m.GetInterval(s[:1])
		require.NoError(t, err)
		require.Equal(t, trueInterval(ts, s[:1]), iv)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	t.Parallel()

	base := storeMap(t, []string{"alpha", "beta", "gamma"}, 16)

	raw, err := os.ReadFile(base + dumpExt)
	require.NoError(t, err)

	// Wrong length refuses to attach.
	require.NoError(t, os.WriteFile(base+dumpExt, append(raw, 0), 0o644))
	_, err = Open(base)
	var se *codec.SizeError
	require.True(t, errors.As(err, &se))

	// Right length, flipped bit: checksum mismatch.
	corrupt := append([]byte(nil), raw...)
	corrupt[0] ^= 0x01
	require.NoError(t, os.WriteFile(base+dumpExt, corrupt, 0o644))
	_, err = Open(base)
	var fe *codec.FormatError
	require.True(t, errors.As(err, &fe))

	// Restore the dump, break the pointer file magic.
	require.NoError(t, os.WriteFile(base+dumpExt, raw, 0o644))
	ptrs, err := os.ReadFile(base + pointerExt)
	require.NoError(t, err)
	ptrs[0] = 'X'
	require.NoError(t, os.WriteFile(base+pointerExt, ptrs, 0o644))
	_, err = Open(base)
	require.True(t, errors.As(err, &fe))
}

func TestCloseInvalidatesCursors(t *testing.T) {
	t.Parallel()

	base := storeMap(t, []string{"alpha", "beta", "gamma"}, 16)
	m, err := Open(base)
	require.NoError(t, err)

	it := m.Iterator()
	require.True(t, it.Next())

	require.NoError(t, m.Close())

	_, err = m.GetTerm(0)
	require.ErrorIs(t, err, codec.ErrStaleCursor)
	_, err = m.GetInterval("a")
	require.ErrorIs(t, err, codec.ErrStaleCursor)
	require.False(t, it.Next())
	require.ErrorIs(t, it.Err(), codec.ErrStaleCursor)
	require.ErrorIs(t, m.Store(base), codec.ErrStaleCursor)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	ts := randomCorpus(rng, 250)
	m, err := BuildStrings(ts, 16)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Export(&buf))

	dumpPath := filepath.Join(t.TempDir(), "imported.dump")
	imported, err := Import(bytes.NewReader(buf.Bytes()), dumpPath)
	require.NoError(t, err)
	defer imported.Close()

	requireTerms(t, imported, ts)
	for q := 0; q < 30; q++ {
		s := ts[rng.Intn(len(ts))]
		prefix := s[:1+rng.Intn(len(s))]
		iv, err := imported.GetInterval(prefix)
		require.NoError(t, err)
		require.Equal(t, trueInterval(ts, prefix), iv)
	}
}

func TestImportRejectsTruncatedStream(t *testing.T) {
	t.Parallel()

	m, err := BuildStrings([]string{"one", "three", "two"}, 16)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Export(&buf))

	dumpPath := filepath.Join(t.TempDir(), "truncated.dump")
	_, err = Import(bytes.NewReader(buf.Bytes()[:buf.Len()-2]), dumpPath)
	var se *codec.SizeError
	require.True(t, errors.As(err, &se))
}

func TestSizeReport(t *testing.T) {
	t.Parallel()

	m, err := BuildStrings([]string{"apple", "apply", "banana"}, 8)
	require.NoError(t, err)

	r := m.SizeReport()
	require.Equal(t, "extmap.Map", r.Name)
	require.Positive(t, r.Total())
	require.NotEmpty(t, r.String())
}
