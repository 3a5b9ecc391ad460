package mysql

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/pkg/mysql"
)

func newDryRunSink(t *testing.T) *ReportSink {
	t.Helper()
	client, err := mysql.NewDryRunClient(mysql.Config{Host: "127.0.0.1", DBName: "replay", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewReportSink(client, domain.NewRunID())
}

func sampleReports() []domain.AccountReport {
	return []domain.AccountReport{
		{Client: 0, Available: domain.MustAmount("1.5"), Held: domain.Zero, Total: domain.MustAmount("1.5")},
		{Client: 7, Available: domain.Zero, Held: domain.MustAmount("2"), Total: domain.MustAmount("2"), Locked: true},
	}
}

func TestToSQLAccounts(t *testing.T) {
	sink := newDryRunSink(t)
	rows, err := sink.toSQLAccounts(sampleReports())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint16(0), rows[0].ClientID)
	assert.Equal(t, "1.5", rows[0].Available.String())
	assert.Equal(t, sink.runID.String(), rows[0].RunID)
	assert.Equal(t, uint16(7), rows[1].ClientID)
	assert.True(t, rows[1].Locked)
}

func TestUpsertStatement(t *testing.T) {
	sink := newDryRunSink(t)
	rows, err := sink.toSQLAccounts(sampleReports())
	require.NoError(t, err)
	res := sink.upsert(context.Background(), rows)
	require.NoError(t, res.Error)

	sql := res.Statement.SQL.String()
	assert.Contains(t, sql, "INSERT INTO `accounts`")
	assert.Contains(t, sql, "`client_id`")
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
	assert.NotEmpty(t, res.Statement.Vars)
}

func TestWriteReportsEmptyIsNoop(t *testing.T) {
	sink := newDryRunSink(t)
	assert.NoError(t, sink.WriteReports(context.Background(), nil))
}

func TestWriteReportsDryRun(t *testing.T) {
	sink := newDryRunSink(t)
	assert.NoError(t, sink.WriteReports(context.Background(), sampleReports()))
}

func TestAmountColumnsKeepFullScale(t *testing.T) {
	sch, err := schema.Parse(&sqlAccount{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	for _, name := range []string{"available", "held", "total"} {
		field := sch.LookUpField(name)
		require.NotNil(t, field, name)
		assert.Equal(t, "decimal(65,30)", field.TagSettings["TYPE"], name)
	}
}

func TestUpsertBindsExactAmounts(t *testing.T) {
	sink := newDryRunSink(t)
	want := domain.MustAmount("1.23456")
	rows, err := sink.toSQLAccounts([]domain.AccountReport{
		{Client: 3, Available: want, Held: domain.Zero, Total: want},
	})
	require.NoError(t, err)

	res := sink.upsert(context.Background(), rows)
	require.NoError(t, res.Error)

	var exact int
	for _, v := range res.Statement.Vars {
		if d, ok := v.(decimal.Decimal); ok && d.Equal(want) {
			exact++
		}
	}
	assert.Equal(t, 2, exact)
}

func TestWriteReportsRejectsAmountOutsideColumn(t *testing.T) {
	sink := newDryRunSink(t)
	cases := []string{
		"0.0000000000000000000000000000001", // 31 位小數
		"100000000000000000000000000000000000",
	}
	for _, raw := range cases {
		v := domain.MustAmount(raw)
		err := sink.WriteReports(context.Background(), []domain.AccountReport{
			{Client: 1, Available: v, Held: domain.Zero, Total: v},
		})
		assert.ErrorIs(t, err, ErrAmountOutOfRange, raw)
	}

	// 30 位小數剛好放得下，尾端的 0 不影響
	v := domain.MustAmount("0.000000000000000000000000000001000")
	assert.NoError(t, sink.WriteReports(context.Background(), []domain.AccountReport{
		{Client: 1, Available: v, Held: domain.Zero, Total: v},
	}))
}
