package service_request

import (
	"io"

	"pawsewa/apperrors"
	"pawsewa/logger"
	"pawsewa/middleware"
	chatService "pawsewa/services/chat"
	locationService "pawsewa/services/location"
	prescriptionService "pawsewa/services/prescription"
	requestService "pawsewa/services/service_request"
	"pawsewa/types"
	requestTypes "pawsewa/types/service_request"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

// ServiceRequestController handles the service request lifecycle and the per-request
// chat, live location and prescription endpoints.
type ServiceRequestController struct {
	requests      *requestService.ServiceRequestService
	chat          *chatService.ChatService
	location      *locationService.LocationService
	prescriptions *prescriptionService.PrescriptionService
}

func NewServiceRequestController(
	requests *requestService.ServiceRequestService,
	chat *chatService.ChatService,
	location *locationService.LocationService,
	prescriptions *prescriptionService.PrescriptionService,
) *ServiceRequestController {
	return &ServiceRequestController{
		requests:      requests,
		chat:          chat,
		location:      location,
		prescriptions: prescriptions,
	}
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (h *ServiceRequestController) Store(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req requestTypes.CreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	created, err := h.requests.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok(requestService.CreatedMessage, created))
}

// Index is the admin listing, filtered by status, serviceType and calendar date.
func (h *ServiceRequestController) Index(c *fiber.Ctx) error {
	var filter requestTypes.ListFilter
	if err := c.QueryParser(&filter); err != nil {
		return apperrors.Validation("Invalid query")
	}

	list, err := h.requests.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}

func (h *ServiceRequestController) Mine(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	list, err := h.requests.ListMine(c.UserContext(), actor, c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}

func (h *ServiceRequestController) Assignments(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	list, err := h.requests.ListAssignments(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}

func (h *ServiceRequestController) Stats(c *fiber.Ctx) error {
	var filter requestTypes.ListFilter
	if err := c.QueryParser(&filter); err != nil {
		return apperrors.Validation("Invalid query")
	}

	stats, err := h.requests.Stats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", stats))
}

func (h *ServiceRequestController) Show(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.requests.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", req))
}

func (h *ServiceRequestController) Assign(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var body requestTypes.AssignRequest
	if err := utils.ParseBody(c, &body); err != nil {
		return err
	}

	req, err := h.requests.Assign(c.UserContext(), actor, id, body)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Staff assigned", req))
}

func (h *ServiceRequestController) Start(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.requests.Start(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Service started", req))
}

func (h *ServiceRequestController) Complete(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var body requestTypes.CompleteRequest
	if len(c.Body()) > 0 {
		if err := utils.ParseBody(c, &body); err != nil {
			return err
		}
	}

	req, err := h.requests.Complete(c.UserContext(), actor, id, body)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Service completed", req))
}

func (h *ServiceRequestController) Cancel(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var body requestTypes.CancelRequest
	if len(c.Body()) > 0 {
		if err := utils.ParseBody(c, &body); err != nil {
			return err
		}
	}

	req, err := h.requests.Cancel(c.UserContext(), actor, id, body)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Service request cancelled", req))
}

func (h *ServiceRequestController) Review(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var body requestTypes.ReviewRequest
	if err := utils.ParseBody(c, &body); err != nil {
		return err
	}

	req, err := h.requests.Review(c.UserContext(), actor, id, body)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Thank you for your review", req))
}

func (h *ServiceRequestController) Messages(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	messages, err := h.chat.History(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.List(messages))
}

// SendMessage is the HTTP fallback for clients without a websocket.
func (h *ServiceRequestController) SendMessage(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var body messageRequest
	if err := utils.ParseBody(c, &body); err != nil {
		return err
	}

	msg, err := h.chat.Send(c.UserContext(), actor, id, body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("", msg))
}

func (h *ServiceRequestController) Live(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	live, err := h.location.Live(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok(live.Message, live))
}

// CapturePrescription expects a multipart "image" field.
func (h *ServiceRequestController) CapturePrescription(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return apperrors.Validation("No image file provided")
	}
	if file.Size > prescriptionService.MaxImageSize {
		return apperrors.Validation("File size too large. Maximum size is 10MB")
	}
	src, err := file.Open()
	if err != nil {
		logger.Error("Failed to open uploaded prescription", err)
		return apperrors.Validation("Failed to read uploaded file")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return apperrors.Validation("Failed to read uploaded file")
	}

	p, err := h.prescriptions.Capture(c.UserContext(), actor, id, prescriptionService.Upload{
		Data:     data,
		MimeType: file.Header.Get("Content-Type"),
		FileName: file.Filename,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("Prescription captured", p))
}

func (h *ServiceRequestController) Prescriptions(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	list, err := h.prescriptions.ListForRequest(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}
