package pet

import (
	"pawsewa/middleware"
	petService "pawsewa/services/pet"
	"pawsewa/types"
	petTypes "pawsewa/types/pet"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

type PetController struct {
	pets *petService.PetService
}

func NewPetController(service *petService.PetService) *PetController {
	return &PetController{pets: service}
}

func (h *PetController) Create(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req petTypes.CreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	p, err := h.pets.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("Pet added", p))
}

func (h *PetController) Mine(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	pets, err := h.pets.ListMine(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(types.List(pets))
}

// Show includes the medical history, newest first.
func (h *PetController) Show(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.pets.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", p))
}

func (h *PetController) Update(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req petTypes.UpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	p, err := h.pets.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Pet updated", p))
}
