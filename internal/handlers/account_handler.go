package handlers

import (
	"contactbook/internal/apperr"
	"contactbook/internal/services"
	"contactbook/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles HTTP requests for signup, login and account maintenance.
type AccountHandler struct {
	accountService *services.AccountService
	validate       *validator.Validate
	log            *logger.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *services.AccountService, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		validate:       validator.New(),
		log:            log.With("component", "account_handler"),
	}
}

// RegisterRoutes registers the account routes. auth guards every route
// scoped to :userId.
func (h *AccountHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	userRoutes := router.Group("/user")
	userRoutes.Post("/signup", h.HandleSignup)
	userRoutes.Post("/login", h.HandleLogin)
	userRoutes.Get("/:userId", auth, h.HandleGet)
	userRoutes.Put("/:userId", auth, h.HandleUpdatePassword)
	userRoutes.Delete("/:userId", auth, h.HandleDelete)
}

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	UserName string `json:"userName" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

// PasswordRequest is the body of a password update.
type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// HandleSignup handles new account registration.
func (h *AccountHandler) HandleSignup(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.Debug("error parsing signup request body", "error", err)
		return respondError(c, h.log, apperr.BadRequest(services.MsgSignupFieldsRequired))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, h.log, apperr.BadRequest(services.MsgSignupFieldsRequired))
	}

	h.log.Info("new signup request", "user_name", req.UserName)
	if _, err := h.accountService.Signup(c.UserContext(), req.UserName, req.Password); err != nil {
		return respondError(c, h.log, err)
	}
	return successJSON(c, "User Created Successfully")
}

// HandleLogin authenticates an account and issues a JWT token.
func (h *AccountHandler) HandleLogin(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.Debug("error parsing login request body", "error", err)
		return respondError(c, h.log, apperr.InvalidCredentials(services.MsgInvalidCredentials))
	}

	h.log.Info("login attempt", "user_name", req.UserName)
	token, account, err := h.accountService.Login(c.UserContext(), req.UserName, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"authToken": token,
		"userId":    account.ID,
	})
}

// HandleGet returns the authenticated account.
func (h *AccountHandler) HandleGet(c *fiber.Ctx) error {
	userID, err := uintParam(c, "userId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	account, err := h.accountService.GetAccount(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(account)
}

// HandleUpdatePassword replaces the password of the authenticated account.
func (h *AccountHandler) HandleUpdatePassword(c *fiber.Ctx) error {
	userID, err := uintParam(c, "userId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil || h.validate.Struct(req) != nil {
		return respondError(c, h.log, apperr.BadRequest(services.MsgPasswordRequired))
	}

	account, err := h.accountService.UpdatePassword(c.UserContext(), userID, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(account)
}

// HandleDelete removes the authenticated account.
func (h *AccountHandler) HandleDelete(c *fiber.Ctx) error {
	userID, err := uintParam(c, "userId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	account, err := h.accountService.DeleteAccount(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(account)
}
