package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

// 磁碟格式 (version 1):
//
//	0      version
//	1      tx state
//	2      event kind
//	3..6   transaction id (uint32, big-endian)
//	7..8   account id (uint16, big-endian)
//	9..    amount (decimal.MarshalBinary)，沒有金額的類型為空
const (
	codecVersion = 1
	headerSize   = 9
)

var (
	errShortRecord        = errors.New("record too short")
	errUnsupportedVersion = errors.New("unsupported record version")
)

// encodeKey 交易 ID 以 big-endian 編碼，bucket 內依 ID 排序
func encodeKey(id domain.TransactionID) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(id))
	return k[:]
}

func encodeOutcome(o domain.StoredOutcome) ([]byte, error) {
	if !o.State.Valid() {
		return nil, domain.ErrInvalidTxState
	}
	if !o.Original.Kind.Valid() {
		return nil, domain.ErrUnknownEventType
	}

	buf := make([]byte, headerSize, headerSize+16)
	buf[0] = codecVersion
	buf[1] = byte(o.State)
	buf[2] = byte(o.Original.Kind)
	binary.BigEndian.PutUint32(buf[3:7], uint32(o.Original.ID))
	binary.BigEndian.PutUint16(buf[7:9], uint16(o.Original.Account))

	if o.Original.Kind.HasAmount() {
		amount, err := o.Original.Amount.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode amount: %w", err)
		}
		buf = append(buf, amount...)
	}
	return buf, nil
}

// decodeOutcome 解碼時不保留對 raw 的參考 (bbolt 的 value 只在交易內有效)
func decodeOutcome(raw []byte) (domain.StoredOutcome, error) {
	if len(raw) < headerSize {
		return domain.StoredOutcome{}, errShortRecord
	}
	if raw[0] != codecVersion {
		return domain.StoredOutcome{}, fmt.Errorf("%w: %d", errUnsupportedVersion, raw[0])
	}

	state := domain.TxState(raw[1])
	if !state.Valid() {
		return domain.StoredOutcome{}, domain.ErrInvalidTxState
	}
	kind := domain.EventKind(raw[2])
	if !kind.Valid() {
		return domain.StoredOutcome{}, domain.ErrUnknownEventType
	}

	ev := domain.IncomingEvent{
		ID:      domain.TransactionID(binary.BigEndian.Uint32(raw[3:7])),
		Account: domain.AccountID(binary.BigEndian.Uint16(raw[7:9])),
		Kind:    kind,
	}
	if kind.HasAmount() {
		amount := make([]byte, len(raw)-headerSize)
		copy(amount, raw[headerSize:])
		if err := ev.Amount.UnmarshalBinary(amount); err != nil {
			return domain.StoredOutcome{}, fmt.Errorf("decode amount: %w", err)
		}
	}
	return domain.StoredOutcome{Original: ev, State: state}, nil
}
