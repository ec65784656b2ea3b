package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nevinnnnnnn/ARTIKLE/internal/delivery/http/dto"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/chat"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type ChatHandler struct {
	orchestrator *chat.Orchestrator
	chatRepo     repository.ChatRepository
	docRepo      repository.DocumentRepository
	log          *logger.Logger
}

func NewChatHandler(orchestrator *chat.Orchestrator, chatRepo repository.ChatRepository, docRepo repository.DocumentRepository, log *logger.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, chatRepo: chatRepo, docRepo: docRepo, log: log}
}

// Stream answers a question about a document over SSE. Frames arrive in
// wire order: metadata first, then text fragments, then a terminal
// complete or error frame.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if req.DocumentID == "" || req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "documentId and query are required"})
	}

	doc, err := h.docRepo.FindByIDAndUserID(c.Context(), req.DocumentID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Document not found"})
	}
	if doc.Status != entity.StatusReady {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: fmt.Sprintf("document is not ready for chat (status: %s)", doc.Status),
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// The request context stays alive inside the stream writer and is
	// cancelled when the client disconnects, which tears down the
	// orchestrator run with it.
	reqCtx := c.Context()
	events := h.orchestrator.Stream(reqCtx, userID, req.DocumentID, req.Query)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			if err := writeSSE(w, ev); err != nil {
				h.log.Warn("chat stream write failed", "document_id", req.DocumentID, "error", err)
				return
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, ev chat.Event) error {
	payload, err := json.Marshal(fiber.Map{"type": ev.Type, "data": ev.Data})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// History lists past exchanges, optionally scoped to one document via
// the documentId query parameter.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Query("documentId")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	var (
		messages []entity.ChatMessage
		err      error
	)
	if documentID != "" {
		messages, err = h.chatRepo.ListByUserAndDocument(c.Context(), userID, documentID, limit)
	} else {
		messages, err = h.chatRepo.ListByUser(c.Context(), userID, limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	entries := make([]dto.ChatHistoryEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, dto.ChatHistoryEntry{
			ID:             m.ID,
			DocumentID:     m.DocumentID,
			Question:       m.Question,
			Answer:         m.Answer,
			RelevanceScore: m.RelevanceScore,
			ContextChunks:  m.ContextChunks,
			Flagged:        m.Flagged,
			Timestamp:      m.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(dto.ChatHistoryResponse{Data: entries})
}

// ClearHistory deletes the user's exchanges, optionally scoped to one
// document.
func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Query("documentId")

	deleted, err := h.chatRepo.DeleteByUser(c.Context(), userID, documentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Chat history cleared",
		"deleted": deleted,
	})
}
