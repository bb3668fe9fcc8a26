package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/trib3/stripe-connect-rocketrides/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	contracts *controllers.ContractAPIController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(deps *controllers.Dependencies) *APIServer {
	return &APIServer{contracts: controllers.NewContractAPIController(deps)}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostContracts creates a contract referenced by brand name and ambassador email.
func (s *APIServer) PostContracts(c *fiber.Ctx) error {
	return s.contracts.HandleCreateContract(c)
}

// PostContractAccept settles a contract of the logged-in ambassador.
// The controller reads uuid from route params; the wrapper already checked it.
func (s *APIServer) PostContractAccept(c *fiber.Ctx, uuid string) error {
	return s.contracts.HandleAcceptContract(c)
}
