package etl

import (
	"errors"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/require"
)

func itoa(i int) string { return strconv.Itoa(i) }

func newParquetInputWriter(w io.Writer) *parquet.GenericWriter[parquetInputRow] {
	return parquet.NewGenericWriter[parquetInputRow](w)
}

func readParquetOutput(t *testing.T, path string) []parquetOutputRow {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewReader(f)
	defer reader.Close()

	var rows []parquetOutputRow
	for {
		var row parquetOutputRow
		err := reader.Read(&row)
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}
