package services

import (
	"context"
	"fmt"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/email"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order) error
	SendOrderShipped(ctx context.Context, order *db.Order) error
	SendOrderDelivered(ctx context.Context, order *db.Order) error
}

type templateRenderer interface {
	Send(ctx context.Context, p email.Provider, templateName string, orderInfo *email.OrderInfo) error
}

type ShopOrderEmailSender struct {
	renderer templateRenderer
	provider email.Provider
	shop     ShopDetails
}

func NewShopOrderEmailSender(renderer templateRenderer, provider email.Provider, shop ShopDetails) *ShopOrderEmailSender {
	return &ShopOrderEmailSender{
		renderer: renderer,
		provider: provider,
		shop:     shop,
	}
}

func (s *ShopOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	return s.send(ctx, email.TemplateOrderConfirmation, order)
}

func (s *ShopOrderEmailSender) SendOrderShipped(ctx context.Context, order *db.Order) error {
	return s.send(ctx, email.TemplateOrderShipped, order)
}

func (s *ShopOrderEmailSender) SendOrderDelivered(ctx context.Context, order *db.Order) error {
	return s.send(ctx, email.TemplateOrderDelivered, order)
}

func (s *ShopOrderEmailSender) send(ctx context.Context, templateName string, order *db.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if s == nil || s.renderer == nil {
		return fmt.Errorf("email renderer is not configured")
	}

	orderInfo := BuildOrderInfo(s.shop, order)
	if orderInfo.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.ID)
	}

	return s.renderer.Send(ctx, s.provider, templateName, orderInfo)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderShipped(context.Context, *db.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderDelivered(context.Context, *db.Order) error {
	return nil
}
