package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaymentConfig = config.PaymentConfig{
	QRBaseURL:  "https://img.vietqr.io/image",
	QRTemplate: "compact2",
}

func TestTransferInfo(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()
	payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)

	order, err := f.service.Checkout(ctx, buyerID, f.checkout(CartItem{ProductID: f.mug.ID, Quantity: 1}))
	require.NoError(t, err)

	info, err := payments.TransferInfo(ctx, buyerID, order.ID)
	require.NoError(t, err)

	assert.Equal(t, "970436", info.BankBIN)
	assert.Equal(t, "0011223344", info.AccountNo)
	assert.Equal(t, "NGUYEN VAN AN", info.AccountName)
	assert.Equal(t, int64(50000), info.Amount, "49999.5 rounds half away from zero")
	assert.Equal(t, order.PaymentReference, info.Reference)

	parsed, err := url.Parse(info.QRImageURL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(parsed.Path, "/970436-0011223344-compact2.png"), parsed.Path)
	assert.Equal(t, "50000", parsed.Query().Get("amount"))
	assert.Equal(t, order.PaymentReference, parsed.Query().Get("addInfo"))
	assert.Equal(t, "NGUYEN VAN AN", parsed.Query().Get("accountName"))
}

func TestTransferInfo_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("other buyer", func(t *testing.T) {
		f := newOrderFixture(t)
		payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)
		order, err := f.service.Checkout(ctx, uuid.New(), f.checkout(CartItem{ProductID: f.mug.ID, Quantity: 1}))
		require.NoError(t, err)

		_, err = payments.TransferInfo(ctx, uuid.New(), order.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("shop without bank account", func(t *testing.T) {
		f := newOrderFixture(t)
		payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)
		buyerID := uuid.New()
		order, err := f.service.Checkout(ctx, buyerID, f.checkout(CartItem{ProductID: f.mug.ID, Quantity: 1}))
		require.NoError(t, err)

		f.shop.BankAccountNo = ""
		_, err = payments.TransferInfo(ctx, buyerID, order.ID)
		assert.ErrorIs(t, err, ErrPaymentUnavailable)
	})

	t.Run("cancelled order", func(t *testing.T) {
		f := newOrderFixture(t)
		payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)
		buyerID := uuid.New()
		order, err := f.service.Checkout(ctx, buyerID, f.checkout(CartItem{ProductID: f.mug.ID, Quantity: 1}))
		require.NoError(t, err)
		_, err = f.service.CancelByBuyer(ctx, buyerID, order.ID)
		require.NoError(t, err)

		_, err = payments.TransferInfo(ctx, buyerID, order.ID)
		assert.ErrorIs(t, err, ErrPaymentUnavailable)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t)
		payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)

		_, err := payments.TransferInfo(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	})
}

func TestTransferInfo_MinimumAmount(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()
	payments := NewPaymentService(f.orders, f.shops, testPaymentConfig)

	order := &domain.Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		ShopID:  f.shop.ID,
		Status:  domain.OrderStatusPending,
	}
	require.NoError(t, f.orders.Create(ctx, order))

	info, err := payments.TransferInfo(ctx, buyerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), info.Amount)
	assert.Regexp(t, `^DH[0-9A-F]{8}$`, info.Reference)
}
