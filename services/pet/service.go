package pet

import (
	"context"
	"errors"
	"strings"

	"pawsewa/apperrors"
	petModel "pawsewa/models/pet"
	"pawsewa/models/service_request"
	"pawsewa/services/policy"
	"pawsewa/types"
	petTypes "pawsewa/types/pet"

	"gorm.io/gorm"
)

type PetService struct {
	DB *gorm.DB
}

func NewPetService(db *gorm.DB) *PetService {
	return &PetService{DB: db}
}

func (s *PetService) Create(ctx context.Context, actor policy.Actor, in petTypes.CreateRequest) (*petModel.Pet, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	p := petModel.Pet{
		OwnerID: actor.ID,
		Name:    in.Name,
		Species: petModel.Species(in.Species),
		Breed:   strings.TrimSpace(in.Breed),
		Age:     in.Age,
		Image:   strings.TrimSpace(in.Image),
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to create pet")
	}
	return &p, nil
}

func (s *PetService) ListMine(ctx context.Context, actor policy.Actor) ([]petModel.Pet, error) {
	var pets []petModel.Pet
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", actor.ID).Order("created_at DESC").Order("id DESC").Find(&pets).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list pets")
	}
	return pets, nil
}

// Get returns the pet with its medical history to the owner, an admin, or staff assigned to one of its visits.
func (s *PetService) Get(ctx context.Context, actor policy.Actor, id uint) (*petModel.Pet, error) {
	var p petModel.Pet
	err := s.DB.WithContext(ctx).
		Preload("MedicalHistory", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at DESC").Order("id DESC") }).
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Pet not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load pet")
	}

	ok, err := s.canView(ctx, actor, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("Not authorized to access this pet")
	}
	return &p, nil
}

func (s *PetService) canView(ctx context.Context, actor policy.Actor, p *petModel.Pet) (bool, error) {
	if p.OwnerID == actor.ID || actor.CanViewAnyPet() {
		return true, nil
	}
	var n int64
	err := s.DB.WithContext(ctx).Model(&service_request.ServiceRequest{}).
		Where("pet_id = ? AND assigned_staff_id = ?", p.ID, actor.ID).
		Count(&n).Error
	if err != nil {
		return false, apperrors.Internal(err, "failed to check pet access")
	}
	return n > 0, nil
}

// Update changes the owner's pet profile.
func (s *PetService) Update(ctx context.Context, actor policy.Actor, id uint, in petTypes.UpdateRequest) (*petModel.Pet, error) {
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	var p petModel.Pet
	err := s.DB.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Pet not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load pet")
	}
	if p.OwnerID != actor.ID {
		return nil, apperrors.Forbidden("Not authorized to update this pet")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("name is required")
		}
		updates["name"] = name
	}
	if in.Species != nil {
		updates["species"] = *in.Species
	}
	if in.Breed != nil {
		updates["breed"] = strings.TrimSpace(*in.Breed)
	}
	if in.Age != nil {
		updates["age"] = *in.Age
	}
	if in.Image != nil {
		updates["image"] = strings.TrimSpace(*in.Image)
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&p).Updates(updates).Error; err != nil {
			return nil, apperrors.Internal(err, "failed to update pet")
		}
	}
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to reload pet")
	}
	return &p, nil
}
