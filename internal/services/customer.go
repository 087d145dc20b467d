package services

import (
	"context"
	"strings"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/utils"
)

type CustomerService struct {
	customerRepo *repository.CustomerRepository
	accountRepo  *repository.AccountRepository
	audit        *AuditService
}

func NewCustomerService(
	customerRepo *repository.CustomerRepository,
	accountRepo *repository.AccountRepository,
	audit *AuditService,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		accountRepo:  accountRepo,
		audit:        audit,
	}
}

func validateCustomerFields(name, email string) error {
	v := newValidation()
	if strings.TrimSpace(name) == "" {
		v.add("name", "обязательное поле")
	}
	if strings.TrimSpace(email) == "" {
		v.add("email", "обязательное поле")
	} else if !strings.Contains(email, "@") {
		v.add("email", "некорректный адрес")
	}
	return v.orNil()
}

func (s *CustomerService) Create(ctx context.Context, actorID string, req models.CreateCustomerRequest) (*models.Customer, error) {
	if err := validateCustomerFields(req.Name, req.Email); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		utils.LogError("CustomerService", "Ошибка создания клиента", err)
		return nil, err
	}

	s.audit.Record(actorID, "customer.create", "customer", customer.ID, customer.Name)

	utils.LogSuccess("CustomerService", "Клиент создан: %s (ID: %s)", customer.Name, customer.ID)
	return customer, nil
}

func (s *CustomerService) List(ctx context.Context) ([]models.Customer, error) {
	return s.customerRepo.List(ctx)
}

func (s *CustomerService) Get(ctx context.Context, customerID string) (*models.Customer, error) {
	return s.customerRepo.GetByID(ctx, customerID)
}

func (s *CustomerService) Update(ctx context.Context, actorID, customerID string, req models.UpdateCustomerRequest) (*models.Customer, error) {
	if err := validateCustomerFields(req.Name, req.Email); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	customer.Name = strings.TrimSpace(req.Name)
	customer.Email = strings.TrimSpace(req.Email)
	customer.Phone = strings.TrimSpace(req.Phone)

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		utils.LogError("CustomerService", "Ошибка обновления клиента", err)
		return nil, err
	}

	s.audit.Record(actorID, "customer.update", "customer", customer.ID, customer.Name)

	utils.LogSuccess("CustomerService", "Клиент %s обновлён", customer.ID)
	return customer, nil
}

// Delete удаляет запись клиента. С открытыми счетами клиент
// не удаляется — сначала счета нужно закрыть.
func (s *CustomerService) Delete(ctx context.Context, actorID, customerID string) error {
	openAccounts, err := s.accountRepo.CountOpenByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if openAccounts > 0 {
		utils.LogWarning("CustomerService", "Клиент %s имеет %d открытых счетов, удаление отклонено", customerID, openAccounts)
		return ErrCustomerActive
	}

	if err := s.customerRepo.Delete(ctx, customerID); err != nil {
		return err
	}

	s.audit.Record(actorID, "customer.delete", "customer", customerID, "")

	utils.LogSuccess("CustomerService", "Клиент %s удалён", customerID)
	return nil
}
