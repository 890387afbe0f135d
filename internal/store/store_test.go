package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/pii-redactor/internal/etl"
)

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert("run-1", []etl.OutputRow{
		{RecordID: "a", RedactedDataJSON: `{}`, IsPII: false, PayloadHash: "h1", RowNum: 1},
		{RecordID: "b", RedactedDataJSON: `{"phone": "98XXXXXX10"}`, IsPII: true, PayloadHash: "h2", RowNum: 2},
	})

	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6),($7, $8, $9, $10, $11, $12)")
	assert.Contains(t, query, "ON CONFLICT (run_id, row_num) DO NOTHING")
	assert.Equal(t, []interface{}{
		"run-1", int64(1), "a", `{}`, false, "h1",
		"run-1", int64(2), "b", `{"phone": "98XXXXXX10"}`, true, "h2",
	}, args)
}

func TestBuildInsertKeepsRepeatedRecordIDs(t *testing.T) {
	query, args := buildInsert("run-1", []etl.OutputRow{
		{RecordID: "7", RedactedDataJSON: `{"phone": "98XXXXXX10"}`, IsPII: true, PayloadHash: "h1", RowNum: 1},
		{RecordID: "7", RedactedDataJSON: `{}`, IsPII: false, PayloadHash: "h2", RowNum: 2},
	})

	assert.NotContains(t, query, "(run_id, record_id)")
	require.Len(t, args, 2*columnsPerRow)
	assert.Equal(t, int64(1), args[1])
	assert.Equal(t, int64(2), args[columnsPerRow+1])
	assert.Equal(t, "7", args[2])
	assert.Equal(t, "7", args[columnsPerRow+2])
}

func TestBuildInsertChunkFitsBindLimit(t *testing.T) {
	rows := make([]etl.OutputRow, maxRowsPerStatement)
	_, args := buildInsert("r", rows)
	assert.Len(t, args, maxRowsPerStatement*columnsPerRow)
	assert.LessOrEqual(t, len(args), 65535)
}

func TestMaskDatabaseURL(t *testing.T) {
	masked := maskDatabaseURL("postgres://redactor:hunter2@db:5432/pii?sslmode=disable")
	assert.NotContains(t, masked, "hunter2")
	assert.True(t, strings.HasPrefix(masked, "postgres://redactor:"))
	assert.Equal(t, "postgres://db/pii", maskDatabaseURL("postgres://db/pii"))
}

type fakeInserter struct {
	calls [][]etl.OutputRow
	runID string
	err   error
}

func (f *fakeInserter) BatchInsert(_ context.Context, runID string, rows []etl.OutputRow) (*BatchInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.runID = runID
	f.calls = append(f.calls, rows)
	return &BatchInsertResult{Inserted: int64(len(rows))}, nil
}

func TestRunSink(t *testing.T) {
	fake := &fakeInserter{}
	sink := &RunSink{inserter: fake, runID: "run-42"}

	var _ etl.Sink = sink

	require.NoError(t, sink.Write(context.Background(), []etl.OutputRow{{RecordID: "1", RowNum: 1}, {RecordID: "1", RowNum: 2}}))
	require.NoError(t, sink.Write(context.Background(), []etl.OutputRow{{RecordID: "3", RowNum: 3}}))
	require.NoError(t, sink.Close())

	assert.Equal(t, "run-42", fake.runID)
	assert.Len(t, fake.calls, 2)
	assert.Equal(t, int64(3), sink.Inserted())
	assert.Equal(t, []int64{1, 2}, []int64{fake.calls[0][0].RowNum, fake.calls[0][1].RowNum})

	fake.err = errors.New("connection reset")
	assert.Error(t, sink.Write(context.Background(), []etl.OutputRow{{RecordID: "4"}}))
}
