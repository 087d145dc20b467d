package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/models"
	"bank-ledger/internal/money"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/utils"
)

type AccountService struct {
	accountRepo  *repository.AccountRepository
	customerRepo *repository.CustomerRepository
	audit        *AuditService
	cache        *cache.RedisCache
}

func NewAccountService(
	accountRepo *repository.AccountRepository,
	customerRepo *repository.CustomerRepository,
	audit *AuditService,
) *AccountService {
	return &AccountService{
		accountRepo:  accountRepo,
		customerRepo: customerRepo,
		audit:        audit,
	}
}

func (s *AccountService) SetCache(c *cache.RedisCache) {
	s.cache = c
}

// Open открывает счёт клиенту. Ненулевой начальный взнос хранилище
// записывает вступительной проводкой в той же атомарной операции.
func (s *AccountService) Open(ctx context.Context, actorID string, req models.OpenAccountRequest) (*models.Account, error) {
	utils.LogInfo("AccountService", "Открытие счёта для клиента %s (тип: %s)", req.CustomerID, req.Type)

	v := newValidation()
	if req.CustomerID == "" {
		v.add("customer_id", "обязательное поле")
	}
	accType := models.AccountType(req.Type)
	if !accType.Valid() {
		v.add("type", "допустимые типы: SAVINGS, CHECKING, CREDIT, MONEY_MARKET, CERTIFICATE_OF_DEPOSIT")
	}

	var openingDeposit int64
	if req.InitialDeposit != "" {
		amount, err := money.Parse(req.InitialDeposit)
		if err != nil || amount < 0 {
			v.add("initial_deposit", "взнос должен быть неотрицательным десятичным числом")
		} else {
			openingDeposit = amount
		}
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.Create(ctx, customer.ID, accType, openingDeposit)
	if err != nil {
		utils.LogError("AccountService", "Ошибка открытия счёта", err)
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.CustomerAccountsKey(customer.ID), cache.StatsKey())
	}

	s.audit.Record(actorID, "account.open", "account", account.ID,
		fmt.Sprintf("клиент %s, тип %s, взнос %s", customer.ID, accType, money.Format(openingDeposit)))

	utils.LogSuccess("AccountService", "Счёт %s открыт для клиента %s (баланс: %s)",
		account.ID, customer.ID, money.Format(account.Balance))

	return account, nil
}

func (s *AccountService) List(ctx context.Context, customerID string) ([]models.Account, error) {
	if customerID == "" {
		return s.accountRepo.List(ctx)
	}

	if s.cache != nil {
		var accounts []models.Account
		err := s.cache.GetJSON(ctx, cache.CustomerAccountsKey(customerID), &accounts)
		if err == nil {
			utils.LogSuccess("Cache", "HIT: счета клиента %s (%d шт.)", customerID, len(accounts))
			return accounts, nil
		}
		if err != redis.Nil {
			utils.LogWarning("Cache", "Ошибка чтения из кеша: %v", err)
		}
	}

	accounts, err := s.accountRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.CustomerAccountsKey(customerID), accounts, cache.CustomerAccountsTTL); err != nil {
			utils.LogWarning("Cache", "Не удалось сохранить счета в кеш: %v", err)
		}
	}

	return accounts, nil
}

// Get возвращает счёт; баланс при возможности берётся из кеша.
func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		balanceKey := cache.AccountBalanceKey(accountID)
		balanceStr, cacheErr := s.cache.Get(ctx, balanceKey)
		if cacheErr == nil {
			if balance, parseErr := strconv.ParseInt(balanceStr, 10, 64); parseErr == nil {
				account.Balance = balance
			}
		} else if cacheErr == redis.Nil {
			if err := s.cache.Set(ctx, balanceKey, strconv.FormatInt(account.Balance, 10), cache.AccountBalanceTTL); err != nil {
				utils.LogWarning("Cache", "Не удалось сохранить баланс в кеш: %v", err)
			}
		}
	}

	return account, nil
}

// Close закрывает счёт. Хранилище отклоняет закрытие при ненулевом
// балансе — остаток сначала нужно вывести проводкой.
func (s *AccountService) Close(ctx context.Context, actorID, accountID string) error {
	utils.LogInfo("AccountService", "Закрытие счёта %s", accountID)

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.accountRepo.Close(ctx, accountID); err != nil {
		if err == repository.ErrBalanceNotZero {
			utils.LogWarning("AccountService", "Счёт %s не закрыт: баланс %s", accountID, money.Format(account.Balance))
			return ErrAccountNotEmpty
		}
		utils.LogError("AccountService", "Ошибка закрытия счёта", err)
		return err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx,
			cache.AccountBalanceKey(accountID),
			cache.CustomerAccountsKey(account.CustomerID),
			cache.StatsKey(),
		)
	}

	s.audit.Record(actorID, "account.close", "account", accountID, "")

	utils.LogSuccess("AccountService", "Счёт %s закрыт", accountID)
	return nil
}
