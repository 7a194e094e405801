package handlers

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"contactbook/internal/apperr"
	"contactbook/internal/models"
	"contactbook/internal/services"
	"contactbook/internal/storage"
	"contactbook/pkg/logger"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PhotoField is the multipart field carrying a contact's profile photo.
const PhotoField = "profilePhoto"

// MaxPhotoDimension bounds the width and height of an uploaded photo, which
// bounds the memory needed to decode it.
const MaxPhotoDimension = 4096

// ContactHandler handles HTTP requests for an account's contacts.
type ContactHandler struct {
	contactService *services.ContactService
	tempDir        string
	maxPhotoBytes  int64
	log            *logger.Logger
}

// NewContactHandler creates a new ContactHandler. Uploaded photos are staged
// in tempDir and rejected above maxPhotoBytes.
func NewContactHandler(contactService *services.ContactService, tempDir string, maxPhotoBytes int64, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		tempDir:        tempDir,
		maxPhotoBytes:  maxPhotoBytes,
		log:            log.With("component", "contact_handler"),
	}
}

// RegisterRoutes registers the contact routes behind auth.
func (h *ContactHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	contactRoutes := router.Group("/user/:userId/contacts", auth)
	contactRoutes.Get("/", h.HandleList)
	contactRoutes.Post("/", h.HandleCreate)
	contactRoutes.Get("/:contactId", h.HandleGet)
	contactRoutes.Put("/:contactId", h.HandleUpdate)
	contactRoutes.Delete("/:contactId", h.HandleDelete)
	contactRoutes.Get("/:contactId/photo", h.HandlePhoto)
	contactRoutes.Post("/:contactId/view", h.HandleView)
	contactRoutes.Get("/:contactId/analytics", h.HandleAnalytics)
}

// HandleList returns every contact of the account.
func (h *ContactHandler) HandleList(c *fiber.Ctx) error {
	owner, err := uintParam(c, "userId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	contacts, err := h.contactService.ListContacts(c.UserContext(), owner)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(contacts)
}

// HandleCreate creates a contact from a JSON or multipart body.
func (h *ContactHandler) HandleCreate(c *fiber.Ctx) error {
	owner, err := uintParam(c, "userId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var fields models.ContactFields
	if err := c.BodyParser(&fields); err != nil {
		h.log.Debug("error parsing contact body", "error", err)
		return respondError(c, h.log, apperr.BadRequest(services.MsgContactNamesRequired))
	}

	upload, err := h.stageUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer h.discard(upload)

	contact, err := h.contactService.CreateContact(c.UserContext(), owner, fields, upload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(contact)
}

// HandleGet returns one contact of the account.
func (h *ContactHandler) HandleGet(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	contact, err := h.contactService.GetContact(c.UserContext(), owner, contactID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(contact)
}

// HandleUpdate merges the given fields onto a contact and optionally replaces
// its photo.
func (h *ContactHandler) HandleUpdate(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var fields models.ContactFields
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&fields); err != nil {
			h.log.Debug("error parsing contact body", "error", err)
			return respondError(c, h.log, apperr.BadRequest("Invalid request body"))
		}
	}

	upload, err := h.stageUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer h.discard(upload)

	contact, err := h.contactService.UpdateContact(c.UserContext(), owner, contactID, fields, upload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(contact)
}

// HandleDelete removes a contact and returns it.
func (h *ContactHandler) HandleDelete(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	contact, err := h.contactService.DeleteContact(c.UserContext(), owner, contactID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(contact)
}

// HandlePhoto streams the stored profile photo of a contact.
func (h *ContactHandler) HandlePhoto(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, apperr.BadRequest("User and Contact Id Both Required"))
	}
	path, err := h.contactService.GetPhoto(c.UserContext(), owner, contactID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendFile(path)
}

// HandleView records a view of a contact owned by the account.
func (h *ContactHandler) HandleView(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if _, err := h.contactService.GetContact(c.UserContext(), owner, contactID); err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.contactService.RegisterView(c.UserContext(), contactID); err != nil {
		return respondError(c, h.log, err)
	}
	return successJSON(c, "View Registered Successfully")
}

// HandleAnalytics returns the view analytics of a contact owned by the account.
func (h *ContactHandler) HandleAnalytics(c *fiber.Ctx) error {
	owner, contactID, err := ids(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if _, err := h.contactService.GetContact(c.UserContext(), owner, contactID); err != nil {
		return respondError(c, h.log, err)
	}
	analytics, err := h.contactService.GetAnalytics(c.UserContext(), contactID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(analytics)
}

func ids(c *fiber.Ctx) (owner, contactID uint64, err error) {
	if owner, err = uintParam(c, "userId"); err != nil {
		return 0, 0, err
	}
	if contactID, err = uintParam(c, "contactId"); err != nil {
		return 0, 0, err
	}
	return owner, contactID, nil
}

// stageUpload saves the photo part of a multipart request, if any, into the
// temp directory. It returns nil when the request carries no photo.
func (h *ContactHandler) stageUpload(c *fiber.Ctx) (*storage.Upload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.BadRequest("Invalid multipart form")
	}
	files := form.File[PhotoField]
	if len(files) == 0 {
		return nil, nil
	}
	file := files[0]

	if file.Size > h.maxPhotoBytes {
		return nil, apperr.TooLarge(
			fmt.Sprintf("Image Size Too Long. Maximum %dKB is Allowed.", h.maxPhotoBytes/1024))
	}

	tempPath := filepath.Join(h.tempDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, tempPath); err != nil {
		return nil, apperr.Filesystem(fmt.Errorf("failed to stage upload: %w", err))
	}
	if err := h.checkImage(tempPath); err != nil {
		h.log.Debug("rejecting upload", "file", file.Filename, "error", err)
		os.Remove(tempPath)
		return nil, err
	}

	return &storage.Upload{
		TempPath:     tempPath,
		OriginalName: file.Filename,
		Size:         file.Size,
	}, nil
}

// checkImage reads the image header first and only decodes images whose
// dimensions are within MaxPhotoDimension.
func (h *ContactHandler) checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to open staged upload: %w", err))
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return apperr.BadRequest("Profile Photo Must Be An Image")
	}
	if cfg.Width > MaxPhotoDimension || cfg.Height > MaxPhotoDimension {
		return apperr.BadRequest(fmt.Sprintf(
			"Image Dimensions Too Large. Maximum %dx%d Pixels Allowed.", MaxPhotoDimension, MaxPhotoDimension))
	}
	if _, err := imaging.Open(path); err != nil {
		return apperr.BadRequest("Profile Photo Must Be An Image")
	}
	return nil
}

// discard removes a staged upload the store did not take.
func (h *ContactHandler) discard(upload *storage.Upload) {
	if upload == nil {
		return
	}
	if err := os.Remove(upload.TempPath); err != nil && !os.IsNotExist(err) {
		h.log.Warn("failed to remove staged upload", "path", upload.TempPath, "error", err)
	}
}
