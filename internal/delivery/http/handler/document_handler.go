package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/nevinnnnnnn/ARTIKLE/internal/delivery/http/dto"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/document"

	"github.com/gofiber/fiber/v2"
)

type DocumentHandler struct {
	docUsecase *document.Usecase
}

func NewDocumentHandler(docUsecase *document.Usecase) *DocumentHandler {
	return &DocumentHandler{docUsecase: docUsecase}
}

func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Failed to get file"})
	}

	visibility := entity.VisibilityPrivate
	if c.FormValue("visibility") == "public" {
		visibility = entity.VisibilityPublic
	}

	fileData, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to open file"})
	}
	defer fileData.Close()

	buf, err := io.ReadAll(fileData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to read file"})
	}

	doc, err := h.docUsecase.Upload(
		c.Context(),
		userID,
		file.Filename,
		buf,
		file.Header.Get("Content-Type"),
		visibility,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadDocumentResponse{
		ID:       doc.ID,
		Filename: doc.Filename,
		Status:   string(doc.Status),
		Message:  "Document uploaded successfully. Processing in background.",
	})
}

func (h *DocumentHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	docs, total, err := h.docUsecase.List(c.Context(), userID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	var docInfos []dto.DocumentInfo
	for _, doc := range docs {
		docInfos = append(docInfos, toDocumentInfo(&doc))
	}

	totalPages := (total + limit - 1) / limit
	return c.Status(fiber.StatusOK).JSON(dto.ListDocumentsResponse{
		Data: docInfos,
		Meta: dto.PaginationMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	doc, err := h.docUsecase.GetByID(c.Context(), documentID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Document not found"})
	}
	return c.Status(fiber.StatusOK).JSON(toDocumentInfo(doc))
}

func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	if err := h.docUsecase.Delete(c.Context(), documentID, userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Message: "Document deleted successfully"})
}

// Reprocess re-runs the ingestion pipeline. A duplicate request while a
// run is in flight is a no-op and still answers 202.
func (h *DocumentHandler) Reprocess(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	err := h.docUsecase.Reprocess(c.Context(), documentID, userID)
	if err != nil && !errors.Is(err, entity.ErrDuplicateProcessing) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.MessageResponse{Message: "Document processing started"})
}

func (h *DocumentHandler) StoreStats(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	stats, err := h.docUsecase.StoreStats(c.Context(), documentID, userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func toDocumentInfo(doc *entity.Document) dto.DocumentInfo {
	return dto.DocumentInfo{
		ID:           doc.ID,
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		FileSize:     doc.FileSize,
		MimeType:     doc.MimeType,
		Status:       string(doc.Status),
		TotalChunks:  doc.TotalChunks,
		Visibility:   string(doc.Visibility),
		EmbeddedAt:   doc.EmbeddedAt,
		CreatedAt:    doc.CreatedAt,
	}
}
