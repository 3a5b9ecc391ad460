package domain

// AccountState 帳戶狀態，只會 Active -> Frozen，沒有解凍
type AccountState uint8

const (
	AccountActive AccountState = iota
	AccountFrozen
)

func (s AccountState) String() string {
	if s == AccountFrozen {
		return "frozen"
	}
	return "active"
}

// Account 單一客戶的帳戶狀態
//
// 結構:
//
//	Balance: 可用餘額 (available)
//	Held: 爭議中被圈存的金額
//	State: Active / Frozen
//
// Balance 與 Held 都可能因爭議變成負數 (款項已被提走)，這是允許的
type Account struct {
	Balance Money
	Held    Money
	State   AccountState
}

// Total available + held
func (a *Account) Total() Money {
	return a.Balance.Add(a.Held)
}

func (a *Account) Frozen() bool {
	return a.State == AccountFrozen
}

// Apply 依照前一次的交易結果決定事件是否合法，並原地修改帳戶。
//
// 參數:
//
//	prev: TxCache 內同一個交易 ID 的結果，沒有則為 nil
//	ev: 本次事件
//
// 回傳:
//
//	StoredOutcome: 需要寫回快取的新結果
//	bool: false 代表事件被拒絕或不適用，帳戶沒有任何變化
//
// 爭議流程 (Dispute / Resolve / Chargeback) 在帳戶凍結後仍然會處理，
// 凍結只擋新的存款與提款。
func (a *Account) Apply(prev *StoredOutcome, ev IncomingEvent) (StoredOutcome, bool) {
	if prev == nil {
		return a.applyFresh(ev)
	}

	effect, ok := prev.Original.SignedEffect()
	if !ok {
		return StoredOutcome{}, false
	}

	switch {
	case prev.State == TxComplete && ev.Kind == EventDispute:
		a.Balance = a.Balance.Sub(effect)
		a.Held = a.Held.Add(effect)
		return prev.WithState(TxUnderDispute), true
	case prev.State == TxUnderDispute && ev.Kind == EventResolve:
		a.Balance = a.Balance.Add(effect)
		a.Held = a.Held.Sub(effect)
		return prev.WithState(TxResolved), true
	case prev.State == TxUnderDispute && ev.Kind == EventChargeback:
		a.Held = a.Held.Sub(effect)
		a.State = AccountFrozen
		return prev.WithState(TxChargedBack), true
	}
	return StoredOutcome{}, false
}

// applyFresh 處理快取中沒有紀錄的交易，只有存款與提款會成立
func (a *Account) applyFresh(ev IncomingEvent) (StoredOutcome, bool) {
	switch ev.Kind {
	case EventDeposit:
		if a.Frozen() {
			return StoredOutcome{}, false
		}
		a.Balance = a.Balance.Add(ev.Amount)
	case EventWithdrawal:
		if a.Frozen() {
			return StoredOutcome{}, false
		}
		// 餘額等於提款金額時允許
		if a.Balance.LessThan(ev.Amount) {
			return StoredOutcome{}, false
		}
		a.Balance = a.Balance.Sub(ev.Amount)
	default:
		return StoredOutcome{}, false
	}
	return StoredOutcome{Original: ev, State: TxComplete}, true
}

// AccountEntry 帳戶 ID 與帳戶快照
type AccountEntry struct {
	ID      AccountID
	Account Account
}
