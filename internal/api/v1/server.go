package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong defines the ping response
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines the error envelope of every v1 endpoint
type Error struct {
	Error string `json:"error"`
}

// ServerInterface represents all server handlers of the v1 API.
type ServerInterface interface {
	// Liveness check
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// Create a pending contract
	// (POST /contracts)
	PostContracts(c *fiber.Ctx) error
	// Accept and settle a contract
	// (POST /contracts/{uuid}/accept)
	PostContractAccept(c *fiber.Ctx, uuid string) error
}

// ServerInterfaceWrapper converts fiber contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

func (siw *ServerInterfaceWrapper) PostContracts(c *fiber.Ctx) error {
	return siw.Handler.PostContracts(c)
}

func (siw *ServerInterfaceWrapper) PostContractAccept(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "uuid: is required"})
	}
	return siw.Handler.PostContractAccept(c, uuid)
}

// Middlewares are per-operation handlers run before the operation.
type Middlewares struct {
	PostContracts      []fiber.Handler
	PostContractAccept []fiber.Handler
}

// RegisterHandlers creates the v1 routes on router.
func RegisterHandlers(router fiber.Router, si ServerInterface, mw Middlewares) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.Get("/ping", wrapper.GetPing)
	router.Post("/contracts", append(mw.PostContracts, wrapper.PostContracts)...)
	router.Post("/contracts/:uuid/accept", append(mw.PostContractAccept, wrapper.PostContractAccept)...)
}
