package domain

import (
	"strconv"
	"strings"
)

// AccountID 客戶帳戶 ID，輸出時依 ID 由小到大排序
type AccountID uint16

// TransactionID 全域唯一的交易 ID，也是 TxCache 的 key
type TransactionID uint32

// EventKind 交易類型
// 為了 WAL 與磁碟快取節省空間，使用 uint8
type EventKind uint8

const (
	// 存款
	EventDeposit EventKind = 1
	// 提款
	EventWithdrawal EventKind = 2
	// 爭議
	EventDispute EventKind = 3
	// 爭議解除
	EventResolve EventKind = 4
	// 退單 (會凍結帳戶)
	EventChargeback EventKind = 5
)

var eventKindNames = map[EventKind]string{
	EventDeposit:    "deposit",
	EventWithdrawal: "withdrawal",
	EventDispute:    "dispute",
	EventResolve:    "resolve",
	EventChargeback: "chargeback",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Valid 是否為已知類型
func (k EventKind) Valid() bool {
	_, ok := eventKindNames[k]
	return ok
}

// HasAmount 只有存款與提款帶金額
func (k EventKind) HasAmount() bool {
	return k == EventDeposit || k == EventWithdrawal
}

// ParseEventKind 解析文字類型，只去除前後空白，大小寫必須完全相符
func ParseEventKind(raw string) (EventKind, error) {
	s := strings.TrimSpace(raw)
	for k, name := range eventKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, &ParseError{Field: "type", Value: raw, Err: ErrUnknownEventType}
}

func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, &ParseError{Field: "type", Value: k.String(), Err: ErrUnknownEventType}
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IncomingEvent 進入帳本的一筆事件
// Amount 只有 Deposit / Withdrawal 有意義，其餘為 0
type IncomingEvent struct {
	ID      TransactionID `json:"tx"`
	Account AccountID     `json:"client"`
	Kind    EventKind     `json:"type"`
	Amount  Money         `json:"amount"`
}

// NewDeposit 建立存款事件，amount 必須已是非負數
func NewDeposit(id TransactionID, account AccountID, amount Money) IncomingEvent {
	return IncomingEvent{ID: id, Account: account, Kind: EventDeposit, Amount: amount}
}

// NewWithdrawal 建立提款事件
func NewWithdrawal(id TransactionID, account AccountID, amount Money) IncomingEvent {
	return IncomingEvent{ID: id, Account: account, Kind: EventWithdrawal, Amount: amount}
}

func NewDispute(id TransactionID, account AccountID) IncomingEvent {
	return IncomingEvent{ID: id, Account: account, Kind: EventDispute}
}

func NewResolve(id TransactionID, account AccountID) IncomingEvent {
	return IncomingEvent{ID: id, Account: account, Kind: EventResolve}
}

func NewChargeback(id TransactionID, account AccountID) IncomingEvent {
	return IncomingEvent{ID: id, Account: account, Kind: EventChargeback}
}

// SignedEffect 原始交易對 balance 造成的變化量
// 存款為 +amount，提款為 -amount，其他類型沒有 (ok=false)
func (e IncomingEvent) SignedEffect() (Money, bool) {
	switch e.Kind {
	case EventDeposit:
		return e.Amount, true
	case EventWithdrawal:
		return e.Amount.Neg(), true
	default:
		return Zero, false
	}
}

// ParseEvent 由文字欄位組出事件，輸入層 (CSV / gRPC) 共用。
//
// 參數:
//
//	kind: 交易類型
//	client: 帳戶 ID (uint16)
//	tx: 交易 ID (uint32)
//	amount: 金額，只有 deposit / withdrawal 需要
//
// 回傳:
//
//	IncomingEvent: 解析後的事件
//	error: *ParseError
func ParseEvent(kind, client, tx, amount string) (IncomingEvent, error) {
	k, err := ParseEventKind(kind)
	if err != nil {
		return IncomingEvent{}, err
	}
	account, err := parseUint("client", client, 16)
	if err != nil {
		return IncomingEvent{}, err
	}
	id, err := parseUint("tx", tx, 32)
	if err != nil {
		return IncomingEvent{}, err
	}

	ev := IncomingEvent{ID: TransactionID(id), Account: AccountID(account), Kind: k}
	if k.HasAmount() {
		ev.Amount, err = ParseAmount(amount)
		if err != nil {
			return IncomingEvent{}, err
		}
	}
	return ev, nil
}

func parseUint(field, raw string, bits int) (uint64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ParseError{Field: field, Err: ErrMissingField}
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, &ParseError{Field: field, Value: s, Err: ErrInvalidNumber}
	}
	return v, nil
}
