package controller

import (
	"errors"
	"strconv"

	"device-activity-service/internal/activity"
	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/model"
	"device-activity-service/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type ActivityController interface {
	LogActivity(c *fiber.Ctx) error
	ListActivities(c *fiber.Ctx) error
	ClearEnvironment(c *fiber.Ctx) error
	ClearAll(c *fiber.Ctx) error
	UserStats(c *fiber.Ctx) error
	DeviceUsage(c *fiber.Ctx) error
	Chart(c *fiber.Ctx) error
	ChartRanges(c *fiber.Ctx) error
	TopDevices(c *fiber.Ctx) error
	Export(c *fiber.Ctx) error
	Import(c *fiber.Ctx) error
}

// activityController exposes HTTP handlers for the activity log.
type activityController struct {
	activityService service.ActivityService
}

// NewActivityController builds an ActivityController.
func NewActivityController(svc service.ActivityService) ActivityController {
	return &activityController{activityService: svc}
}

// LogActivity records one device toggle in the environment from the path.
func (h *activityController) LogActivity(c *fiber.Ctx) error {
	var req model.DeviceActivity
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	event, err := h.activityService.LogActivity(c.UserContext(), c.Params("env"), req)
	if err != nil {
		return toHTTPError(err, "failed to log activity")
	}

	return c.Status(fiber.StatusCreated).JSON(event)
}

// ListActivities returns events newest-first, narrowed by the query filters.
func (h *activityController) ListActivities(c *fiber.Ctx) error {
	filter, err := buildActivityFilter(c)
	if err != nil {
		return err
	}

	events, svcErr := h.activityService.ListActivities(c.UserContext(), filter)
	if svcErr != nil {
		return toHTTPError(svcErr, "failed to list activities")
	}

	return c.JSON(events)
}

func (h *activityController) ClearEnvironment(c *fiber.Ctx) error {
	if err := h.activityService.ClearEnvironment(c.UserContext(), c.Params("env")); err != nil {
		return toHTTPError(err, "failed to clear environment")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *activityController) ClearAll(c *fiber.Ctx) error {
	if err := h.activityService.ClearAll(c.UserContext()); err != nil {
		return toHTTPError(err, "failed to clear activities")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *activityController) UserStats(c *fiber.Ctx) error {
	env := utils.Trim(c.Query("environment"), ' ')
	return c.JSON(h.activityService.UserStats(c.UserContext(), env))
}

func (h *activityController) DeviceUsage(c *fiber.Ctx) error {
	summary, err := h.activityService.DeviceUsage(c.UserContext(), c.Params("env"), c.Params("device"))
	if err != nil {
		return toHTTPError(err, "failed to summarize device")
	}
	return c.JSON(summary)
}

func (h *activityController) Chart(c *fiber.Ctx) error {
	rangeName := utils.Trim(c.Query("range"), ' ')
	resp, err := h.activityService.Chart(c.UserContext(), c.Params("env"), rangeName)
	if err != nil {
		return toHTTPError(err, "failed to build chart")
	}
	return c.JSON(resp)
}

// ChartRanges lists the selectable chart ranges, shortest first.
func (h *activityController) ChartRanges(c *fiber.Ctx) error {
	ranges := aggregation.TimeRanges()
	out := make([]fiber.Map, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, fiber.Map{
			"name":     r.Name,
			"lookback": r.Lookback.String(),
			"interval": r.Interval.String(),
			"buckets":  r.Buckets(),
			"default":  r.Name == aggregation.DefaultTimeRange,
		})
	}
	return c.JSON(out)
}

func (h *activityController) TopDevices(c *fiber.Ctx) error {
	limit := 0
	if raw := utils.Trim(c.Query("limit"), ' '); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	top, err := h.activityService.TopDevices(c.UserContext(), c.Params("env"), limit)
	if err != nil {
		return toHTTPError(err, "failed to rank devices")
	}
	return c.JSON(top)
}

// Export downloads the log as an attachment.
func (h *activityController) Export(c *fiber.Ctx) error {
	env := utils.Trim(c.Query("environment"), ' ')
	bundle := h.activityService.Export(c.UserContext(), env)

	name := "device-activity.json"
	if env != "" {
		name = "device-activity-" + env + ".json"
	}
	c.Attachment(name)
	return c.JSON(bundle)
}

func (h *activityController) Import(c *fiber.Ctx) error {
	var bundle model.ExportBundle
	if err := c.BodyParser(&bundle); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	res, err := h.activityService.Import(c.UserContext(), bundle)
	if err != nil {
		return toHTTPError(err, "failed to import activities")
	}
	return c.JSON(res)
}

func buildActivityFilter(c *fiber.Ctx) (model.ActivityFilter, error) {
	filter := model.ActivityFilter{
		EnvironmentID: utils.Trim(c.Query("environment"), ' '),
		DeviceID:      utils.Trim(c.Query("device"), ' '),
		UserID:        utils.Trim(c.Query("user"), ' '),
	}

	if raw := utils.Trim(c.Query("from"), ' '); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.ActivityFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid from timestamp")
		}
		filter.From = &ms
	}

	if raw := utils.Trim(c.Query("to"), ' '); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.ActivityFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid to timestamp")
		}
		filter.To = &ms
	}

	return filter, nil
}

func toHTTPError(err error, fallback string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, activity.ErrStorage):
		return fiber.NewError(fiber.StatusServiceUnavailable, "activity storage unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}
