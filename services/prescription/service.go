package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawsewa/apperrors"
	"pawsewa/logger"
	prescriptionModel "pawsewa/models/prescription"
	"pawsewa/models/service_request"
	"pawsewa/services/policy"
	"pawsewa/tracing"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxImageSize is the largest upload accepted, 10MB.
const MaxImageSize = 10 * 1024 * 1024

// Upload is a prescription photo taken from the multipart form.
type Upload struct {
	Data     []byte
	MimeType string
	FileName string
}

type PrescriptionService struct {
	DB      *gorm.DB
	Parser  Parser
	Timeout time.Duration
}

func NewPrescriptionService(db *gorm.DB, parser Parser, timeout time.Duration) *PrescriptionService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PrescriptionService{DB: db, Parser: parser, Timeout: timeout}
}

// Capture parses the assignee's prescription photo, stores the result and links it to the request.
func (s *PrescriptionService) Capture(ctx context.Context, actor policy.Actor, requestID uint, up Upload) (_ *prescriptionModel.Prescription, err error) {
	ctx, span := tracing.Start(ctx, "prescription.capture")
	defer func() { tracing.End(span, err) }()

	if !actor.CanCapturePrescription() {
		return nil, apperrors.Forbidden("Only veterinarians can upload prescriptions")
	}
	if len(up.Data) == 0 {
		return nil, apperrors.Validation("No image file provided")
	}
	if !isValidImageType(up.MimeType) {
		return nil, apperrors.Validation("Invalid file type. Only JPEG, JPG, PNG, and WebP files are allowed")
	}
	if len(up.Data) > MaxImageSize {
		return nil, apperrors.Validation("File size too large. Maximum size is 10MB")
	}

	var req service_request.ServiceRequest
	err = s.DB.WithContext(ctx).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load service request")
	}
	if !req.IsAssignee(actor.ID) {
		return nil, apperrors.Forbidden("You are not assigned to this service request")
	}
	if req.Status != service_request.StatusInProgress && req.Status != service_request.StatusCompleted {
		return nil, apperrors.ErrIllegalState.Msgf("Prescriptions can only be added to visits in progress or completed")
	}

	if s.Parser == nil {
		return nil, apperrors.Upstream(apperrors.ErrNotConfigured, "Prescription reader is not configured")
	}
	started := time.Now()
	parseCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	parsed, err := s.Parser.Parse(parseCtx, up.Data, up.MimeType)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to parse prescription for request %d", req.ID), err)
		return nil, apperrors.Upstream(err, "Failed to read prescription")
	}

	p := prescriptionModel.Prescription{
		ServiceRequestID: req.ID,
		PetID:            req.PetID,
		Medications:      datatypes.NewJSONSlice(cleanMedications(parsed.Medications)),
		Instructions:     strings.TrimSpace(parsed.Instructions),
		RawText:          strings.TrimSpace(parsed.RawText),
		CreatedBy:        actor.ID,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return tx.Model(&service_request.ServiceRequest{}).Where("id = ?", req.ID).Update("prescription_id", p.ID).Error
	})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to save prescription")
	}

	logger.Success(fmt.Sprintf("Prescription parsed in %dms for request %d (%d medication(s))",
		time.Since(started).Milliseconds(), req.ID, len(p.Medications)))
	return &p, nil
}

// ListForRequest returns the request's prescriptions, newest first.
func (s *PrescriptionService) ListForRequest(ctx context.Context, actor policy.Actor, requestID uint) ([]prescriptionModel.Prescription, error) {
	var req service_request.ServiceRequest
	err := s.DB.WithContext(ctx).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load service request")
	}
	if !actor.CanViewRequest(&req) {
		return nil, apperrors.Forbidden("Not authorized to view this service request")
	}

	var items []prescriptionModel.Prescription
	if err := s.DB.WithContext(ctx).Where("service_request_id = ?", req.ID).Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list prescriptions")
	}
	return items, nil
}

func cleanMedications(in []prescriptionModel.Medication) []prescriptionModel.Medication {
	out := make([]prescriptionModel.Medication, 0, len(in))
	for _, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Frequency = strings.TrimSpace(m.Frequency)
		m.Duration = strings.TrimSpace(m.Duration)
		out = append(out, m)
	}
	return out
}
