package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyBuyerContext = "BUYER_CONTEXT"
	HeaderUserEmail = "X-User-Email"
)
