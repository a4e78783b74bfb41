package db

import "github.com/storefrontapp/storefront/internal/models"

type Order = models.Order
type OrderItem = models.OrderItem
type CustomerInfo = models.CustomerInfo
type OrderStatus = models.OrderStatus
type PaymentStatus = models.PaymentStatus
type Product = models.Product
type Category = models.Category

const (
	StatusPending    = models.StatusPending
	StatusProcessing = models.StatusProcessing
	StatusShipped    = models.StatusShipped
	StatusDelivered  = models.StatusDelivered

	PaymentPending = models.PaymentPending
	PaymentSuccess = models.PaymentSuccess
	PaymentFailed  = models.PaymentFailed
)
