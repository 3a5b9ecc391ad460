package csvfile

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

func readAll(t *testing.T, input string) ([]domain.IncomingEvent, error) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var out []domain.IncomingEvent
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func TestReaderSampleWithTrailingNewline(t *testing.T) {
	input := `type, client, tx, amount
            deposit, 1, 1, 1.0
            deposit, 2, 2, 2.0
            deposit, 1, 3, 2.0
            withdrawal, 1, 4, 1.5
            withdrawal, 2, 5, 3.0
            `
	events, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Equal(t, domain.EventDeposit, events[0].Kind)
	assert.Equal(t, domain.TransactionID(1), events[0].ID)
	assert.Equal(t, domain.AccountID(1), events[0].Account)
	assert.True(t, events[0].Amount.Equal(domain.MustAmount("1.0")))

	assert.Equal(t, domain.EventWithdrawal, events[4].Kind)
	assert.Equal(t, domain.AccountID(2), events[4].Account)
	assert.True(t, events[4].Amount.Equal(domain.MustAmount("3")))
}

func TestReaderSampleWithoutTrailingNewline(t *testing.T) {
	input := "type, client, tx, amount\ndeposit, 1, 1, 1.0\nwithdrawal, 1, 4, 1.5"
	events, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.TransactionID(4), events[1].ID)
}

func TestReaderControlEventsWithoutAmount(t *testing.T) {
	input := "type,client,tx,amount\ndeposit,1,1,5\ndispute,1,1\nresolve,1,1,\nchargeback, 1, 1, \n"
	events, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.NewDispute(1, 1), events[1])
	assert.Equal(t, domain.NewResolve(1, 1), events[2])
	assert.Equal(t, domain.NewChargeback(1, 1), events[3])
}

func TestReaderEmptyInput(t *testing.T) {
	events, err := readAll(t, "")
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = readAll(t, "type,client,tx,amount\n")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReaderAbortsOnFirstBadRecord(t *testing.T) {
	cases := map[string]error{
		"type,client,tx,amount\ndeposit,1,1,1\ndeposit,1,2,-1\n": domain.ErrNegativeAmount,
		"type,client,tx,amount\nrefund,1,1,1\n":                  domain.ErrUnknownEventType,
		"type,client,tx,amount\ndeposit,x,1,1\n":                 domain.ErrInvalidNumber,
		"type,client,tx,amount\nwithdrawal,1,1\n":                domain.ErrMissingField,
		"type,client,tx,amount\ndeposit,1,4294967296,1\n":        domain.ErrInvalidNumber,
		"type,client,tx,amount\ndeposit,1,1,one\n":               domain.ErrInvalidAmount,
	}
	for input, want := range cases {
		_, err := readAll(t, input)
		assert.ErrorIs(t, err, want, input)
	}
}

func TestReaderErrorMentionsLine(t *testing.T) {
	_, err := readAll(t, "type,client,tx,amount\ndeposit,1,1,1\ndeposit,1,2,-1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReaderNegativeZeroNormalized(t *testing.T) {
	events, err := readAll(t, "type,client,tx,amount\ndeposit,1,1,-0.0\n")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].Amount.Sign())
}

func TestReaderSkipsRecordsWithoutType(t *testing.T) {
	input := "type,client,tx,amount\n,1,1,1.0\ndeposit,2,2,3\n ,9,9\n\nwithdrawal,2,3,1\n"
	events, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.TransactionID(2), events[0].ID)
	assert.Equal(t, domain.TransactionID(3), events[1].ID)
}

func TestReaderTypeIsCaseSensitive(t *testing.T) {
	_, err := readAll(t, "type,client,tx,amount\nDeposit,1,1,1\n")
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)
}
