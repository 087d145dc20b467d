package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
)

func newTestService(accounts ...models.Account) (*TransactionService, *repository.MemoryLedgerStore) {
	store := repository.NewMemoryLedgerStore()
	for _, a := range accounts {
		store.AddAccount(a)
	}
	return NewTransactionService(store, nil), store
}

// checkInvariant проверяет инвариант леджера: баланс счёта равен
// сумме эффектов всех его проводок.
func checkInvariant(t *testing.T, store *repository.MemoryLedgerStore, accountID string) {
	t.Helper()

	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", accountID, err)
	}

	transactions, err := store.ListByAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ListByAccount(%s): %v", accountID, err)
	}

	var sum int64
	for i := range transactions {
		sum += transactions[i].Effect()
	}
	if account.Balance != sum {
		t.Fatalf("инвариант нарушен для счёта %s: баланс %d, сумма эффектов %d", accountID, account.Balance, sum)
	}
}

func mustCreate(t *testing.T, s *TransactionService, accountID, txType, amount string) *models.Transaction {
	t.Helper()
	tx, _, err := s.Create(context.Background(), "tester", models.CreateTransactionRequest{
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("Create(%s %s): %v", txType, amount, err)
	}
	return tx
}

func TestCreateDepositAndWithdrawal(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	mustCreate(t, s, "A1", "DEPOSIT", "100.00")
	mustCreate(t, s, "A1", "WITHDRAWAL", "30.00")

	account, _ := store.GetAccount(context.Background(), "A1")
	if account.Balance != 7000 {
		t.Fatalf("баланс = %d, ожидалось 7000", account.Balance)
	}
	checkInvariant(t, store, "A1")
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	cases := []struct {
		name  string
		req   models.CreateTransactionRequest
		field string
	}{
		{"пустой счёт", models.CreateTransactionRequest{Type: "DEPOSIT", Amount: "10.00"}, "account_id"},
		{"плохой тип", models.CreateTransactionRequest{AccountID: "A1", Type: "BONUS", Amount: "10.00"}, "type"},
		{"перевод не тут", models.CreateTransactionRequest{AccountID: "A1", Type: "TRANSFER", Amount: "10.00"}, "type"},
		{"нулевая сумма", models.CreateTransactionRequest{AccountID: "A1", Type: "DEPOSIT", Amount: "0"}, "amount"},
		{"отрицательная сумма", models.CreateTransactionRequest{AccountID: "A1", Type: "DEPOSIT", Amount: "-5.00"}, "amount"},
		{"не число", models.CreateTransactionRequest{AccountID: "A1", Type: "DEPOSIT", Amount: "пять"}, "amount"},
	}

	for _, c := range cases {
		_, _, err := s.Create(context.Background(), "tester", c.req)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("%s: ожидалась ValidationError, получено %v", c.name, err)
			continue
		}
		if _, ok := v.Fields[c.field]; !ok {
			t.Errorf("%s: нет ошибки по полю %q, поля: %v", c.name, c.field, v.Fields)
		}
	}
}

func TestCreateUnknownAccount(t *testing.T) {
	s, _ := newTestService()
	_, _, err := s.Create(context.Background(), "tester", models.CreateTransactionRequest{
		AccountID: "NOPE", Type: "DEPOSIT", Amount: "10.00",
	})
	if !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("ожидалось ErrAccountNotFound, получено %v", err)
	}
}

// Снятие, уводящее некредитный счёт в минус, отклоняется и не меняет баланс.
func TestInsufficientFunds(t *testing.T) {
	s, store := newTestService(models.Account{ID: "S1", Type: models.AccountSavings, Balance: 5000})

	_, _, err := s.Create(context.Background(), "tester", models.CreateTransactionRequest{
		AccountID: "S1", Type: "WITHDRAWAL", Amount: "100.00",
	})
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("ожидалось ErrInsufficientBalance, получено %v", err)
	}

	account, _ := store.GetAccount(context.Background(), "S1")
	if account.Balance != 5000 {
		t.Fatalf("баланс изменился: %d", account.Balance)
	}
}

// Кредитный счёт может уходить в минус.
func TestCreditAccountMayGoNegative(t *testing.T) {
	s, store := newTestService(models.Account{ID: "C1", Type: models.AccountCredit})

	mustCreate(t, s, "C1", "WITHDRAWAL", "250.00")

	account, _ := store.GetAccount(context.Background(), "C1")
	if account.Balance != -25000 {
		t.Fatalf("баланс = %d, ожидалось -25000", account.Balance)
	}
	checkInvariant(t, store, "C1")
}

// Изменение DEPOSIT 100 → WITHDRAWAL 40 на счёте с балансом 500:
// дельта = -40 - (+100) = -140, итог 360.
func TestAmendDeltaCorrectness(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking, Balance: 40000})

	tx := mustCreate(t, s, "A1", "DEPOSIT", "100.00") // баланс 500.00

	_, account, err := s.Amend(context.Background(), "tester", tx.ID, models.AmendTransactionRequest{
		Type: "WITHDRAWAL", Amount: "40.00",
	})
	if err != nil {
		t.Fatalf("Amend: %v", err)
	}
	if account.Balance != 36000 {
		t.Fatalf("баланс = %d, ожидалось 36000", account.Balance)
	}
	checkInvariant(t, store, "A1")
}

func TestAmendNotFound(t *testing.T) {
	s, _ := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	_, _, err := s.Amend(context.Background(), "tester", "missing", models.AmendTransactionRequest{
		Type: "DEPOSIT", Amount: "10.00",
	})
	if !errors.Is(err, repository.ErrTransactionNotFound) {
		t.Fatalf("ожидалось ErrTransactionNotFound, получено %v", err)
	}
}

// Повторное сторнирование того же id — NotFound без изменения баланса.
func TestReverseIdempotence(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	tx := mustCreate(t, s, "A1", "DEPOSIT", "100.00")

	account, err := s.Reverse(context.Background(), "tester", tx.ID)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if account.Balance != 0 {
		t.Fatalf("баланс после сторно = %d, ожидалось 0", account.Balance)
	}

	_, err = s.Reverse(context.Background(), "tester", tx.ID)
	if !errors.Is(err, repository.ErrTransactionNotFound) {
		t.Fatalf("повторное сторно: ожидалось ErrTransactionNotFound, получено %v", err)
	}

	account2, _ := store.GetAccount(context.Background(), "A1")
	if account2.Balance != 0 {
		t.Fatalf("баланс изменился после повторного сторно: %d", account2.Balance)
	}
	checkInvariant(t, store, "A1")
}

// Инвариант выдерживает произвольную последовательность операций.
func TestInvariantAfterMixedOperations(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	d1 := mustCreate(t, s, "A1", "DEPOSIT", "500.00")
	mustCreate(t, s, "A1", "WITHDRAWAL", "120.00")
	d3 := mustCreate(t, s, "A1", "DEPOSIT", "33.33")

	if _, _, err := s.Amend(context.Background(), "tester", d1.ID, models.AmendTransactionRequest{
		Type: "DEPOSIT", Amount: "450.00",
	}); err != nil {
		t.Fatalf("Amend: %v", err)
	}
	if _, err := s.Reverse(context.Background(), "tester", d3.ID); err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	account, _ := store.GetAccount(context.Background(), "A1")
	if account.Balance != 33000 { // 450.00 - 120.00
		t.Fatalf("баланс = %d, ожидалось 33000", account.Balance)
	}
	checkInvariant(t, store, "A1")
}

// Сбой хранилища на шаге записи баланса: ни проводка, ни баланс
// не должны измениться.
func TestAtomicityOnStorageFailure(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	tx := mustCreate(t, s, "A1", "DEPOSIT", "100.00")

	store.FailNextWrite()
	_, _, err := s.Create(context.Background(), "tester", models.CreateTransactionRequest{
		AccountID: "A1", Type: "DEPOSIT", Amount: "7.00",
	})
	if !errors.Is(err, repository.ErrWriteFailed) {
		t.Fatalf("ожидалось ErrWriteFailed, получено %v", err)
	}

	account, _ := store.GetAccount(context.Background(), "A1")
	if account.Balance != 10000 {
		t.Fatalf("баланс после сбоя = %d, ожидалось 10000", account.Balance)
	}
	list, _ := store.ListByAccount(context.Background(), "A1")
	if len(list) != 1 {
		t.Fatalf("проводок после сбоя: %d, ожидалась 1", len(list))
	}

	store.FailNextWrite()
	if _, _, err := s.Amend(context.Background(), "tester", tx.ID, models.AmendTransactionRequest{
		Type: "DEPOSIT", Amount: "200.00",
	}); !errors.Is(err, repository.ErrWriteFailed) {
		t.Fatalf("Amend при сбое: ожидалось ErrWriteFailed, получено %v", err)
	}

	got, _ := store.GetTransaction(context.Background(), tx.ID)
	if got.Amount != 10000 {
		t.Fatalf("проводка изменилась при сбое: %d", got.Amount)
	}
	checkInvariant(t, store, "A1")
}

// Два конкурентных Amend по разным проводкам одного счёта:
// итоговый баланс не зависит от порядка выполнения.
func TestConcurrentAmendRace(t *testing.T) {
	s, store := newTestService(models.Account{ID: "A1", Type: models.AccountChecking})

	deposit := mustCreate(t, s, "A1", "DEPOSIT", "100.00")
	withdrawal := mustCreate(t, s, "A1", "WITHDRAWAL", "20.00")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, _, err := s.Amend(context.Background(), "tester", deposit.ID, models.AmendTransactionRequest{
			Type: "DEPOSIT", Amount: "150.00",
		}); err != nil {
			t.Errorf("Amend депозита: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, _, err := s.Amend(context.Background(), "tester", withdrawal.ID, models.AmendTransactionRequest{
			Type: "WITHDRAWAL", Amount: "50.00",
		}); err != nil {
			t.Errorf("Amend снятия: %v", err)
		}
	}()
	wg.Wait()

	account, _ := store.GetAccount(context.Background(), "A1")
	if account.Balance != 10000 { // 150.00 - 50.00
		t.Fatalf("баланс = %d, ожидалось 10000", account.Balance)
	}
	checkInvariant(t, store, "A1")
}

func TestTransferDoubleEntry(t *testing.T) {
	s, store := newTestService(
		models.Account{ID: "A1", Type: models.AccountChecking, Balance: 50000},
		models.Account{ID: "B1", Type: models.AccountSavings},
	)

	outLeg, from, err := s.Transfer(context.Background(), "tester", models.TransferRequest{
		FromAccountID: "A1", ToAccountID: "B1", Amount: "200.00",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if from.Balance != 30000 {
		t.Fatalf("баланс источника = %d, ожидалось 30000", from.Balance)
	}
	if outLeg.Leg != models.LegOut || outLeg.TransferID == "" {
		t.Fatalf("нога списания некорректна: %+v", outLeg)
	}

	to, _ := store.GetAccount(context.Background(), "B1")
	if to.Balance != 20000 {
		t.Fatalf("баланс получателя = %d, ожидалось 20000", to.Balance)
	}

	// На каждом счёте ровно одна нога с общим transfer_id
	inList, _ := store.ListByAccount(context.Background(), "B1")
	if len(inList) != 1 || inList[0].TransferID != outLeg.TransferID || inList[0].Leg != models.LegIn {
		t.Fatalf("нога зачисления некорректна: %+v", inList)
	}

	checkInvariant(t, store, "A1")
	checkInvariant(t, store, "B1")
}

func TestTransferValidation(t *testing.T) {
	s, _ := newTestService(models.Account{ID: "A1", Type: models.AccountChecking, Balance: 1000})

	_, _, err := s.Transfer(context.Background(), "tester", models.TransferRequest{
		FromAccountID: "A1", ToAccountID: "A1", Amount: "5.00",
	})
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("перевод самому себе: ожидалась ValidationError, получено %v", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	s, store := newTestService(
		models.Account{ID: "A1", Type: models.AccountSavings, Balance: 1000},
		models.Account{ID: "B1", Type: models.AccountSavings},
	)

	_, _, err := s.Transfer(context.Background(), "tester", models.TransferRequest{
		FromAccountID: "A1", ToAccountID: "B1", Amount: "50.00",
	})
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("ожидалось ErrInsufficientBalance, получено %v", err)
	}

	from, _ := store.GetAccount(context.Background(), "A1")
	to, _ := store.GetAccount(context.Background(), "B1")
	if from.Balance != 1000 || to.Balance != 0 {
		t.Fatalf("балансы изменились: %d / %d", from.Balance, to.Balance)
	}
}

// Сторно ноги перевода снимает обе ноги и возвращает оба баланса.
func TestReverseTransferRemovesBothLegs(t *testing.T) {
	s, store := newTestService(
		models.Account{ID: "A1", Type: models.AccountChecking, Balance: 50000},
		models.Account{ID: "B1", Type: models.AccountSavings},
	)

	outLeg, _, err := s.Transfer(context.Background(), "tester", models.TransferRequest{
		FromAccountID: "A1", ToAccountID: "B1", Amount: "200.00",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if _, err := s.Reverse(context.Background(), "tester", outLeg.ID); err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	from, _ := store.GetAccount(context.Background(), "A1")
	to, _ := store.GetAccount(context.Background(), "B1")
	if from.Balance != 50000 || to.Balance != 0 {
		t.Fatalf("балансы после сторно: %d / %d", from.Balance, to.Balance)
	}

	inList, _ := store.ListByAccount(context.Background(), "B1")
	if len(inList) != 0 {
		t.Fatalf("нога зачисления осталась: %+v", inList)
	}
	checkInvariant(t, store, "A1")
	checkInvariant(t, store, "B1")
}

// Изменение ноги перевода меняет сумму зеркально на обеих ногах;
// смена типа с TRANSFER запрещена.
func TestAmendTransferLeg(t *testing.T) {
	s, store := newTestService(
		models.Account{ID: "A1", Type: models.AccountChecking, Balance: 50000},
		models.Account{ID: "B1", Type: models.AccountSavings},
	)

	outLeg, _, err := s.Transfer(context.Background(), "tester", models.TransferRequest{
		FromAccountID: "A1", ToAccountID: "B1", Amount: "200.00",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	_, _, err = s.Amend(context.Background(), "tester", outLeg.ID, models.AmendTransactionRequest{
		Type: "DEPOSIT", Amount: "200.00",
	})
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("смена типа ноги перевода: ожидалась ValidationError, получено %v", err)
	}

	if _, _, err := s.Amend(context.Background(), "tester", outLeg.ID, models.AmendTransactionRequest{
		Type: "TRANSFER", Amount: "250.00",
	}); err != nil {
		t.Fatalf("Amend ноги перевода: %v", err)
	}

	from, _ := store.GetAccount(context.Background(), "A1")
	to, _ := store.GetAccount(context.Background(), "B1")
	if from.Balance != 25000 || to.Balance != 25000 {
		t.Fatalf("балансы после изменения: %d / %d, ожидалось 25000 / 25000", from.Balance, to.Balance)
	}
	checkInvariant(t, store, "A1")
	checkInvariant(t, store, "B1")
}
