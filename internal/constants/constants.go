package constants

const (
	AppStorefront     = "storefront"
	AppAPI            = "storefront-api"
	AppOutboxRelay    = "storefront-outbox-relay"
	AppNotification   = "storefront-notification"
	AppMigrate        = "storefront-migrate"
	AppUserService    = "user-service"
	AppProductService = "product-service"
	AppCartService    = "cart-service"
	AppOrderService   = "order-service"
	AppPaymentService = "payment-service"

	AudienceUser = "audience-user"

	RoleUser  = "user"
	RoleAdmin = "admin"
)
