package service

import (
	"context"

	"marketplace/internal/config"
	"marketplace/internal/domain"
	"marketplace/internal/payment"
	"marketplace/internal/repository"

	"github.com/google/uuid"
)

// TransferInfo is what a buyer needs to pay an order by bank transfer
type TransferInfo struct {
	OrderID     uuid.UUID `json:"order_id"`
	BankBIN     string    `json:"bank_bin"`
	AccountNo   string    `json:"account_no"`
	AccountName string    `json:"account_name"`
	Amount      int64     `json:"amount"`
	Reference   string    `json:"reference"`
	QRImageURL  string    `json:"qr_image_url"`
}

// PaymentService builds bank transfer instructions for orders
type PaymentService interface {
	TransferInfo(ctx context.Context, buyerID, orderID uuid.UUID) (*TransferInfo, error)
}

type paymentService struct {
	orderRepo repository.OrderRepository
	shopRepo  repository.ShopRepository
	cfg       config.PaymentConfig
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(orderRepo repository.OrderRepository, shopRepo repository.ShopRepository, cfg config.PaymentConfig) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		shopRepo:  shopRepo,
		cfg:       cfg,
	}
}

// TransferInfo returns the shop's bank account, the amount and the
// reference to quote for the buyer's own order
func (s *paymentService) TransferInfo(ctx context.Context, buyerID, orderID uuid.UUID) (*TransferInfo, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, ErrPaymentUnavailable
	}

	shop, err := s.shopRepo.FindByID(ctx, order.ShopID)
	if err != nil {
		return nil, err
	}
	if !shop.AcceptsBankTransfer() {
		return nil, ErrPaymentUnavailable
	}

	reference := order.PaymentReference
	if reference == "" {
		reference = payment.Reference(order.ID)
	}
	amount := payment.Amount(order.Total)
	accountName := payment.AccountName(shop.BankAccountName)

	return &TransferInfo{
		OrderID:     order.ID,
		BankBIN:     shop.BankBIN,
		AccountNo:   shop.BankAccountNo,
		AccountName: accountName,
		Amount:      amount,
		Reference:   reference,
		QRImageURL: payment.QRImageURL(payment.QRRequest{
			BaseURL:     s.cfg.QRBaseURL,
			Template:    s.cfg.QRTemplate,
			BankBIN:     shop.BankBIN,
			AccountNo:   shop.BankAccountNo,
			AccountName: shop.BankAccountName,
			Amount:      amount,
			Info:        reference,
		}),
	}, nil
}
