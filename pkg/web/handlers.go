package web

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/persistence"
	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	repository persistence.DocumentRepository
	ledger     *ledger.Ledger
	pipeline   *services.Pipeline
	deployer   *services.Deployer
	validator  *validator.Validate
}

func NewAPIHandlers(
	repository persistence.DocumentRepository,
	changes *ledger.Ledger,
	pipeline *services.Pipeline,
	deployer *services.Deployer,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		repository: repository,
		ledger:     changes,
		pipeline:   pipeline,
		deployer:   deployer,
		validator:  validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"
	ledgerCheck := "ok"

	if err := h.repository.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
	}

	if _, err := h.ledger.Status(c.Context()); err != nil {
		ledgerCheck = err.Error()
	}

	if repositoryCheck != "ok" || ledgerCheck != "ok" {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"ledger":     ledgerCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetDocuments scans the flows directory and returns every ledger record.
func (h *APIHandlers) GetDocuments(c fiber.Ctx) error {
	_, err := h.ledger.Scan(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	records, err := h.ledger.Status(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	documents := make([]DocumentStatus, 0, len(records))
	for _, record := range records {
		documents = append(documents, TransformStatus(record))
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].Path < documents[j].Path
	})

	return c.JSON(fiber.Map{
		"documents":   documents,
		"total_count": len(documents),
	})
}

// GetCompiled returns the push-ready copy of the document named by the
// "document" query parameter.
func (h *APIHandlers) GetCompiled(c fiber.Ctx) error {
	ref := c.Query("document")
	if ref == "" {
		return badRequest(c, "document query parameter is required")
	}

	path, err := h.repository.Resolve(c.Context(), ref)
	if err != nil {
		return handleServiceError(c, err)
	}

	doc, err := h.repository.Load(c.Context(), path)
	if err != nil {
		return handleServiceError(c, err)
	}

	prepared, err := h.pipeline.Prepare(c.Context(), path, doc)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prepared.Document)
}

func (h *APIHandlers) Validate(c fiber.Ctx) error {
	var req ValidateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	paths := req.Documents
	if len(paths) == 0 {
		listed, err := h.repository.List(c.Context())
		if err != nil {
			return handleServiceError(c, err)
		}

		paths = listed
	}

	responses := make([]ValidationResponse, 0, len(paths))

	for _, ref := range paths {
		path, err := h.repository.Resolve(c.Context(), ref)
		if err != nil {
			return handleServiceError(c, err)
		}

		doc, err := h.repository.Load(c.Context(), path)
		if err != nil {
			return handleServiceError(c, err)
		}

		fixes := make([]validation.Fix, 0)

		var report *validation.Report
		if req.Fix {
			report, fixes = h.pipeline.Fix(doc)
		} else {
			report = h.pipeline.Validate(doc)
		}

		issues := report.Issues
		if issues == nil {
			issues = []validation.Issue{}
		}

		responses = append(responses, ValidationResponse{
			Path:   path,
			Valid:  services.Blocking(path, report) == nil,
			Issues: issues,
			Fixes:  fixes,
		})
	}

	return c.JSON(fiber.Map{"documents": responses})
}

func (h *APIHandlers) Deploy(c fiber.Ctx) error {
	var req DeployRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	deploy := h.deployer.DeployDirty
	if req.All {
		deploy = h.deployer.DeployAll
	}

	batch, err := deploy(c.Context())
	if err != nil && !errors.Is(err, services.ErrNothingToDeploy) {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformBatch(batch))
}
