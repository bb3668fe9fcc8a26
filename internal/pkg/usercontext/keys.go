package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext  = "USER_CONTEXT"
	KeyAmbassador   = "AMBASSADOR"
	KeyAmbassadorID = "ambassador_id"
)
