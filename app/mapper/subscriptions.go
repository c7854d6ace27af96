package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/dto"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"google.golang.org/protobuf/types/known/structpb"
)

const CancelledStatus = "cancelled"

func CancelledToDTO(item *entity.RecurringToken) *dto.CancelSubscriptionResponse {
	if item == nil {
		return nil
	}
	return &dto.CancelSubscriptionResponse{ShopperReference: item.ShopperReference, Status: CancelledStatus}
}

func RecurringTokenToDTO(item *entity.RecurringToken) *dto.RecurringTokenResponse {
	if item == nil {
		return nil
	}
	return &dto.RecurringTokenResponse{
		ShopperReference:         item.ShopperReference,
		RecurringDetailReference: item.RecurringDetailReference,
		CreatedAt:                formatTime(item.CreatedAt),
		UpdatedAt:                formatTime(item.UpdatedAt),
	}
}

func RecurringTokensToDTO(items []*entity.RecurringToken) []*dto.RecurringTokenResponse {
	result := make([]*dto.RecurringTokenResponse, 0, len(items))
	for _, item := range items {
		result = append(result, RecurringTokenToDTO(item))
	}
	return result
}

func RenewalReportToDTO(report service.RenewalReport) *dto.RenewalReportResponse {
	return &dto.RenewalReportResponse{
		Attempted:  report.Attempted,
		Authorised: report.Authorised,
		Refused:    report.Refused,
		Failed:     report.Failed,
	}
}

// MapToStruct converts a decoded JSON object to its protobuf form. Numbers
// become doubles.
func MapToStruct(data map[string]any) (*structpb.Struct, error) {
	if data == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	return structpb.NewStruct(data)
}

func StructToMap(item *structpb.Struct) map[string]any {
	if item == nil {
		return map[string]any{}
	}
	return item.AsMap()
}

func CancelledToStruct(item *entity.RecurringToken) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"shopperReference": structpb.NewStringValue(item.ShopperReference),
		"status":           structpb.NewStringValue(CancelledStatus),
	}}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
