package rejects

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

func TestReport_WritesRows(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf)
	require.NoError(t, err)

	require.NoError(t, r.Reject(domain.Rejection{Filename: "A_BADNAME.TXT", Stage: domain.StageParse, Reason: "does not match, at all"}))
	require.NoError(t, r.Reject(domain.Rejection{Filename: "b.TXT", Stage: domain.StageCommit, Reason: "batch failed"}))
	require.NoError(t, r.Close())

	assert.Equal(t, 2, r.Rows())

	var got []domain.Rejection
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "does not match, at all", got[0].Reason)
	assert.Equal(t, domain.StageCommit, got[1].Stage)
}

func TestReport_HeaderOnlyWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.csv")
	r, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "filename,stage,reason\n", string(data))
}

func TestCreate_BadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "rejects.csv"))
	assert.ErrorContains(t, err, "create reject report")
}
