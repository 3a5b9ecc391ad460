package domain

import "strconv"

// TxState 交易的生命週期狀態
type TxState uint8

const (
	TxComplete     TxState = 1
	TxUnderDispute TxState = 2
	TxResolved     TxState = 3
	TxChargedBack  TxState = 4
)

var txStateNames = map[TxState]string{
	TxComplete:     "complete",
	TxUnderDispute: "under-dispute",
	TxResolved:     "resolved",
	TxChargedBack:  "charged-back",
}

func (s TxState) String() string {
	if name, ok := txStateNames[s]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

func (s TxState) Valid() bool {
	_, ok := txStateNames[s]
	return ok
}

func (s TxState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidTxState
	}
	return []byte(s.String()), nil
}

func (s *TxState) UnmarshalText(text []byte) error {
	for state, name := range txStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return ErrInvalidTxState
}

// StoredOutcome TxCache 的 value：原始的存/提款事件與目前狀態
// 只有 Deposit / Withdrawal 會建立，之後只會被替換、不會被刪除
type StoredOutcome struct {
	Original IncomingEvent `json:"original"`
	State    TxState       `json:"state"`
}

// WithState 回傳狀態改變後的副本
func (o StoredOutcome) WithState(state TxState) StoredOutcome {
	o.State = state
	return o
}
