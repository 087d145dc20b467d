package handlers

import (
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
)

func newTransactionHandler(accounts ...models.Account) *TransactionHandler {
	store := repository.NewMemoryLedgerStore()
	for _, a := range accounts {
		store.AddAccount(a)
	}
	return NewTransactionHandler(services.NewTransactionService(store, nil))
}

func postCtx(userID, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBodyString(body)
	if userID != "" {
		ctx.SetUserValue("user_id", userID)
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(ctx.Response.Body(), &out); err != nil {
		t.Fatalf("невалидный JSON в ответе: %v\n%s", err, ctx.Response.Body())
	}
	return out
}

func TestCreateTransactionHandler(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "A1", Type: models.AccountChecking})

	ctx := postCtx("teller-1", `{"account_id":"A1","type":"DEPOSIT","amount":"100.50"}`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusCreated {
		t.Fatalf("статус = %d, ожидалось 201: %s", got, ctx.Response.Body())
	}

	body := decodeBody(t, ctx)
	var account models.AccountResponse
	if err := json.Unmarshal(body["account"], &account); err != nil {
		t.Fatalf("разбор account: %v", err)
	}
	if account.Balance != "100.50" {
		t.Errorf("баланс в ответе = %q, ожидалось 100.50", account.Balance)
	}
}

func TestCreateTransactionValidationStatus(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "A1", Type: models.AccountChecking})

	ctx := postCtx("teller-1", `{"account_id":"A1","type":"DEPOSIT","amount":"-5"}`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusBadRequest {
		t.Fatalf("статус = %d, ожидалось 400", got)
	}
	body := decodeBody(t, ctx)
	if _, ok := body["fields"]; !ok {
		t.Errorf("в ответе об ошибке валидации нет карты полей: %s", ctx.Response.Body())
	}
}

func TestCreateTransactionBadJSON(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "A1", Type: models.AccountChecking})

	ctx := postCtx("teller-1", `{не json`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusBadRequest {
		t.Fatalf("статус = %d, ожидалось 400", got)
	}
}

func TestCreateTransactionUnauthorized(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "A1", Type: models.AccountChecking})

	ctx := postCtx("", `{"account_id":"A1","type":"DEPOSIT","amount":"10.00"}`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("статус = %d, ожидалось 401", got)
	}
}

func TestInsufficientFundsStatus(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "S1", Type: models.AccountSavings, Balance: 500})

	ctx := postCtx("teller-1", `{"account_id":"S1","type":"WITHDRAWAL","amount":"50.00"}`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusConflict {
		t.Fatalf("статус = %d, ожидалось 409: %s", got, ctx.Response.Body())
	}
}

func TestClosedAccountStatus(t *testing.T) {
	h := newTransactionHandler(models.Account{ID: "A1", Type: models.AccountChecking, Status: "closed"})

	ctx := postCtx("teller-1", `{"account_id":"A1","type":"DEPOSIT","amount":"10.00"}`)
	h.Create(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusGone {
		t.Fatalf("статус = %d, ожидалось 410: %s", got, ctx.Response.Body())
	}
}

func TestTransferHandler(t *testing.T) {
	h := newTransactionHandler(
		models.Account{ID: "A1", Type: models.AccountChecking, Balance: 100000},
		models.Account{ID: "B1", Type: models.AccountSavings},
	)

	ctx := postCtx("teller-1", `{"from_account_id":"A1","to_account_id":"B1","amount":"200.00"}`)
	h.Transfer(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusCreated {
		t.Fatalf("статус = %d, ожидалось 201: %s", got, ctx.Response.Body())
	}

	body := decodeBody(t, ctx)
	var tx models.TransactionResponse
	if err := json.Unmarshal(body["transaction"], &tx); err != nil {
		t.Fatalf("разбор transaction: %v", err)
	}
	if tx.Type != "TRANSFER" || tx.Leg != "out" {
		t.Errorf("нога списания в ответе некорректна: %+v", tx)
	}
}

func TestHistoryRequiresAccountID(t *testing.T) {
	h := newTransactionHandler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.SetUserValue("user_id", "teller-1")
	h.History(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusBadRequest {
		t.Fatalf("статус = %d, ожидалось 400", got)
	}
}
