package http

const (
	KeyHeaderContentType       = "Content-Type"
	KeyHeaderRequestID         = "X-Request-Id"
	KeyHeaderAuthorization     = "Authorization"
	KeyHeaderStripeSignature   = "Stripe-Signature"
	ValueHeaderApplicationJson = "application/json"
)
