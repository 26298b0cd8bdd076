package web

import (
	"github.com/dukex/flowsmith/pkg/contracts"
	"github.com/dukex/flowsmith/pkg/persistence"
	"github.com/dukex/flowsmith/pkg/validation"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("bad_request").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps typed errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	kind := "internal_error"

	switch {
	case persistence.IsDocumentNotFound(err):
		status, kind = fiber.StatusNotFound, "document_not_found"
	case persistence.IsInvalidDocument(err):
		status, kind = fiber.StatusUnprocessableEntity, "invalid_document"
	case validation.IsStructural(err):
		status, kind = fiber.StatusUnprocessableEntity, "structural_error"
	case contracts.IsContractViolation(err):
		status, kind = fiber.StatusUnprocessableEntity, "contract_violation"
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(err.Error())

	return c.Status(status).JSON(problem)
}
