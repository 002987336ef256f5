package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/sfgfab/jobflow/pkg/approval"
	"github.com/sfgfab/jobflow/pkg/directory"
	"github.com/sfgfab/jobflow/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsJobNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("job_not_found").
			WithDetail("job not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsApprovalNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("approval_not_found").
			WithDetail("approval not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, directory.ErrApproverNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("approver_not_found").
			WithDetail("approver not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsConcurrentModification(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("concurrent_modification").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsDuplicateApproval(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("duplicate_approval").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, approval.ErrApprovalClosed):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("approval_closed").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, approval.ErrApprovalBlocked):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("approval_blocked").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, approval.ErrSelfApprovalNotAllowed),
		errors.Is(err, approval.ErrUnqualifiedApprover):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("approver_not_allowed").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	default:
		return internalError(c, err)
	}
}
