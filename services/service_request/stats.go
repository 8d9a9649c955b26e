package service_request

import (
	"context"

	"pawsewa/apperrors"
	requestModel "pawsewa/models/service_request"
	requestTypes "pawsewa/types/service_request"

	"github.com/Masterminds/squirrel"
)

var statusKeys = map[requestModel.Status]string{
	requestModel.StatusPending:    "pending",
	requestModel.StatusAssigned:   "assigned",
	requestModel.StatusInProgress: "inProgress",
	requestModel.StatusCompleted:  "completed",
	requestModel.StatusCancelled:  "cancelled",
}

var serviceTypeKeys = map[requestModel.ServiceType]string{
	requestModel.ServiceTypeAppointment:   "appointment",
	requestModel.ServiceTypeHealthCheckup: "healthCheckup",
	requestModel.ServiceTypeVaccination:   "vaccination",
}

type groupCount struct {
	Bucket string
	Count  int64
}

// Stats counts requests per status and per service type. Every known key is present.
func (s *ServiceRequestService) Stats(ctx context.Context, f requestTypes.ListFilter) (*requestTypes.Stats, error) {
	where := squirrel.And{}
	if f.ServiceType != "" {
		where = append(where, squirrel.Eq{"service_type": f.ServiceType})
	}
	if f.Date != "" {
		day, err := ParseDay(f.Date, s.Location)
		if err != nil {
			return nil, err
		}
		start, end := s.dayBounds(day)
		where = append(where, squirrel.GtOrEq{"preferred_date": start}, squirrel.LtOrEq{"preferred_date": end})
	}

	byStatus, err := s.countBy(ctx, "status", where)
	if err != nil {
		return nil, err
	}
	byType, err := s.countBy(ctx, "service_type", where)
	if err != nil {
		return nil, err
	}

	stats := &requestTypes.Stats{
		ByStatus:      make(map[string]int64, len(statusKeys)),
		ByServiceType: make(map[string]int64, len(serviceTypeKeys)),
	}
	for _, key := range statusKeys {
		stats.ByStatus[key] = 0
	}
	for _, key := range serviceTypeKeys {
		stats.ByServiceType[key] = 0
	}
	for _, row := range byStatus {
		stats.Total += row.Count
		if key, ok := statusKeys[requestModel.Status(row.Bucket)]; ok {
			stats.ByStatus[key] = row.Count
		}
	}
	for _, row := range byType {
		if key, ok := serviceTypeKeys[requestModel.ServiceType(row.Bucket)]; ok {
			stats.ByServiceType[key] = row.Count
		}
	}
	return stats, nil
}

func (s *ServiceRequestService) countBy(ctx context.Context, column string, where squirrel.And) ([]groupCount, error) {
	q := squirrel.Select(column+" AS bucket", "COUNT(*) AS count").
		From(requestModel.ServiceRequest{}.TableName()).
		GroupBy(column)
	if len(where) > 0 {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to build stats query")
	}

	var rows []groupCount
	if err := s.DB.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load service request stats")
	}
	return rows, nil
}
