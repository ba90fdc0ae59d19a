package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyConfig             = "config"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyStatusCode         = "statusCode"
	KeyUserID             = "userId"
	KeyEmail              = "email"
	KeyRole               = "role"
	KeyCartID             = "cartId"
	KeyCartItemID         = "cartItemId"
	KeyCartItems          = "cartItems"
	KeyProductID          = "productId"
	KeyProductIDs         = "productIds"
	KeyProduct            = "product"
	KeyProducts           = "products"
	KeyCategoryID         = "categoryId"
	KeyQuantity           = "quantity"
	KeyOrderID            = "orderId"
	KeyOrder              = "order"
	KeyOrders             = "orders"
	KeyOrderItems         = "orderItems"
	KeyTotal              = "total"
	KeySessionID          = "sessionId"
	KeyPaymentReference   = "paymentReference"
	KeyEventID            = "eventId"
	KeyEventType          = "eventType"
	KeyOutcome            = "outcome"
	KeyTopic              = "topic"
	KeyBatchSize          = "batchSize"
	KeyCacheKey           = "cacheKey"
	KeyDbURL              = "dbUrl"
	KeyMigrationDirection = "migrationDirection"
)
