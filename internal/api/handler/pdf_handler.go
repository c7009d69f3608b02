package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const mimePDF = "application/pdf"

type pdfRequest struct {
	Type string `json:"type" validate:"required,oneof=transfer claim"`
	ID   string `json:"id"   validate:"required"`
}

type pdfResponse struct {
	PDF         string `json:"pdf"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
}

// PDFHandler serves generated documents.
type PDFHandler struct {
	docs ports.DocumentService
}

func NewPDFHandler(docs ports.DocumentService) *PDFHandler {
	return &PDFHandler{docs: docs}
}

// Generate handles POST /api/pdf and returns the document base64-encoded.
//
// @Summary      Render a record PDF
// @Tags         pdf
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      pdfRequest  true  "Record reference"
// @Success      200   {object}  successResponse{data=pdfResponse}
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/pdf [post]
func (h *PDFHandler) Generate(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req pdfRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	doc, err := h.docs.Render(c.Request().Context(), req.Type, req.ID, p, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, pdfResponse{
		PDF:         base64.StdEncoding.EncodeToString(doc.Data),
		ContentType: mimePDF,
		Filename:    doc.Filename,
	})
}

// Download handles GET /api/pdf/:type/:id and streams the stored PDF.
//
// @Summary      Download a record PDF
// @Tags         pdf
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        type  path  string  true  "transfer or claim"
// @Param        id    path  string  true  "Record ID"
// @Success      200
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/pdf/{type}/{id} [get]
func (h *PDFHandler) Download(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	doc, err := h.docs.Open(c.Request().Context(), c.Param("type"), c.Param("id"), p, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+doc.Filename+`"`)
	return c.Blob(http.StatusOK, mimePDF, doc.Data)
}
