package gcs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "filings"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage client is required")
}
