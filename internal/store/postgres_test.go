package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestUpsert_EmptyBatchTouchesNothing(t *testing.T) {
	s, mock := newStoreWithMock(t)

	require.NoError(t, s.Upsert(context.Background(), ContactsCollection, nil))
	require.NoError(t, s.Upsert(context.Background(), ContactsCollection, []models.Document{}))
	require.NoError(t, s.UpsertNodes(context.Background(), nil))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_SingleStatementInTransaction(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(UpsertStatement(ContactsCollection, 2))).
		WithArgs("u1", `{"a":1}`, "u2", `{"b":2}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.Upsert(context.Background(), ContactsCollection, []models.Document{
		{Key: "u1", Doc: []byte(`{"a":1}`)},
		{Key: "u2", Doc: []byte(`{"b":2}`)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RepeatedKeyKeepsLastDocument(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(UpsertStatement(MessagesCollection, 2))).
		WithArgs("1", `{"a":2}`, "2", `{"b":1}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.Upsert(context.Background(), MessagesCollection, []models.Document{
		{Key: "1", Doc: []byte(`{"a":1}`)},
		{Key: "2", Doc: []byte(`{"b":1}`)},
		{Key: "1", Doc: []byte(`{"a":2}`)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ChunksLargeBatchesInOneTransaction(t *testing.T) {
	s, mock := newStoreWithMock(t)

	docs := make([]models.Document, maxRowsPerStatement+5)
	for i := range docs {
		docs[i] = models.Document{Key: fmt.Sprintf("r%d", i), Doc: []byte(`{}`)}
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(UpsertStatement(RunsCollection, maxRowsPerStatement))).
		WillReturnResult(sqlmock.NewResult(0, maxRowsPerStatement))
	mock.ExpectExec(regexp.QuoteMeta(UpsertStatement(RunsCollection, 5))).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	require.NoError(t, s.Upsert(context.Background(), RunsCollection, docs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ErrorRollsBackAndIsStoreError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rapidpro_flows").WillReturnError(errors.New("db is down"))
	mock.ExpectRollback()

	err := s.Upsert(context.Background(), FlowsCollection, []models.Document{{Key: "f1", Doc: []byte(`{}`)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStore))
	assert.Contains(t, err.Error(), "db is down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertNodes(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(NodeUpsertStatement(2))).
		WithArgs("n1", "f1", `{"uuid":"n1"}`, "n2", "f1", `{"uuid":"n2"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.UpsertNodes(context.Background(), []models.NodeDocument{
		{Key: "n1", FlowKey: "f1", Doc: []byte(`{"uuid":"n1"}`)},
		{Key: "n2", FlowKey: "f1", Doc: []byte(`{"uuid":"n2"}`)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWatermark(t *testing.T) {
	q := regexp.QuoteMeta(`SELECT last_modified FROM rapidpro_runs_watermark WHERE source = $1`)

	t.Run("present", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("textit.in").
			WillReturnRows(sqlmock.NewRows([]string{"last_modified"}).AddRow("2020-01-03T00:00:00Z"))

		v, ok, err := s.Watermark(context.Background(), "textit.in")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2020-01-03T00:00:00Z", v)
	})

	t.Run("absent", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("textit.in").WillReturnRows(sqlmock.NewRows([]string{"last_modified"}))

		v, ok, err := s.Watermark(context.Background(), "textit.in")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("error", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("textit.in").WillReturnError(errors.New("boom"))

		_, _, err := s.Watermark(context.Background(), "textit.in")
		assert.True(t, errors.Is(err, common.ErrStore))
	})

	t.Run("row error", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("textit.in").
			WillReturnRows(sqlmock.NewRows([]string{"last_modified"}).
				AddRow("2020-01-03T00:00:00Z").RowError(0, errors.New("conn reset")))

		_, ok, err := s.Watermark(context.Background(), "textit.in")
		assert.False(t, ok)
		assert.True(t, errors.Is(err, common.ErrStore))
	})
}

func TestInsertWatermark_Error(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec("INSERT INTO rapidpro_runs_watermark").WillReturnError(errors.New("duplicate key"))

	err := s.InsertWatermark(context.Background(), "textit.in", "2020-01-03")
	assert.True(t, errors.Is(err, common.ErrStore))
	assert.Contains(t, err.Error(), "inserting watermark")
}

func TestInsertAndUpdateWatermark(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO rapidpro_runs_watermark (source, last_modified) VALUES ($1, $2)`)).
		WithArgs("textit.in", "2020-01-03").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rapidpro_runs_watermark SET last_modified = $2 WHERE source = $1`)).
		WithArgs("textit.in", "2020-01-05").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.InsertWatermark(context.Background(), "textit.in", "2020-01-03"))
	require.NoError(t, s.UpdateWatermark(context.Background(), "textit.in", "2020-01-05"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWatermark_MissingRow(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("UPDATE rapidpro_runs_watermark").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateWatermark(context.Background(), "textit.in", "2020-01-05")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStore))
}

func TestQueryAndExec(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("DELETE FROM x").WillReturnError(errors.New("denied"))

	rows, err := s.Query(context.Background(), "SELECT count(*) FROM rapidpro_contacts")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 3, n)

	_, err = s.Exec(context.Background(), "DELETE FROM x")
	assert.True(t, errors.Is(err, common.ErrStore))
}
