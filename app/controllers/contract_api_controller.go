package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// ContractAPIController serves the JSON contract API.
type ContractAPIController struct {
	deps *Dependencies
}

func NewContractAPIController(deps *Dependencies) *ContractAPIController {
	return &ContractAPIController{deps: deps}
}

// CreateContractRequest references brand and ambassador by name and email.
// Empty references fall back to the latest brand and the first onboarded
// ambassador.
type CreateContractRequest struct {
	BrandName       string `json:"brandName" form:"brandName"`
	AmbassadorEmail string `json:"ambassadorEmail" form:"ambassadorEmail"`
	Amount          int64  `json:"amount" form:"amount"`
	PostLink        string `json:"postLink" form:"postLink"`
}

// HandleCreateContract creates a pending contract. No money moves until the
// ambassador accepts it.
func (cc *ContractAPIController) HandleCreateContract(c *fiber.Ctx) error {
	var req CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, apperror.Invalid("body", "could not be parsed"))
	}
	ctx := c.UserContext()

	var (
		brand *models.Brand
		err   error
	)
	if name := strings.TrimSpace(req.BrandName); name != "" {
		brand, err = cc.deps.Ledger.BrandByName(ctx, name)
	} else {
		brand, err = cc.deps.Ledger.LatestBrand(ctx)
	}
	if err != nil {
		return jsonError(c, err)
	}

	var ambassador *models.Ambassador
	if email := strings.TrimSpace(req.AmbassadorEmail); email != "" {
		ambassador, err = cc.deps.Ledger.GetAmbassadorByEmail(ctx, email)
	} else {
		ambassador, err = cc.deps.Ledger.FirstOnboardedAmbassador(ctx)
	}
	if err != nil {
		return jsonError(c, err)
	}

	contract, err := cc.deps.Engine.CreateContract(ctx, ambassador.ID, brand.ID, req.PostLink, req.Amount)
	if err != nil {
		return jsonError(c, err)
	}
	contract.Brand = brand
	return c.Status(fiber.StatusCreated).JSON(contract)
}

// HandleAcceptContract settles one of the logged-in ambassador's contracts.
func (cc *ContractAPIController) HandleAcceptContract(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	contract, err := acceptOwnContract(c, cc.deps, ambassador, c.Params("uuid"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(contract)
}
