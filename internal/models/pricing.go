package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFeatures 预测入参校验失败
var ErrInvalidFeatures = errors.New("invalid prediction features")

// 枚举取值，与模型训练时的类别保持一致
var (
	ModelKeys = []string{
		"Citroën", "Peugeot", "PGO", "Renault", "Audi", "BMW", "Ford", "Mercedes",
		"Opel", "Porsche", "Volkswagen", "KIA Motors", "Alfa Romeo", "Ferrari",
		"Fiat", "Lamborghini", "Maserati", "Lexus", "Honda", "Mazda", "Mini",
		"Mitsubishi", "Nissan", "SEAT", "Subaru", "Suzuki", "Toyota", "Yamaha",
	}
	FuelTypes   = []string{"diesel", "petrol", "hybrid_petrol", "electro"}
	PaintColors = []string{"black", "grey", "white", "red", "silver", "blue", "orange", "beige", "brown", "green"}
	CarTypes    = []string{"convertible", "coupe", "estate", "hatchback", "sedan", "subcompact", "suv", "van"}
)

// PredictionFeatures 价格预测的输入特征
type PredictionFeatures struct {
	ModelKey                string `json:"model_key"`
	Mileage                 int64  `json:"mileage"`
	EnginePower             int64  `json:"engine_power"`
	Fuel                    string `json:"fuel"`
	PaintColor              string `json:"paint_color"`
	CarType                 string `json:"car_type"`
	PrivateParkingAvailable bool   `json:"private_parking_available"`
	HasGPS                  bool   `json:"has_gps"`
	HasAirConditioning      bool   `json:"has_air_conditioning"`
	AutomaticCar            bool   `json:"automatic_car"`
	HasGetaroundConnect     bool   `json:"has_getaround_connect"`
	HasSpeedRegulator       bool   `json:"has_speed_regulator"`
	WinterTires             bool   `json:"winter_tires"`
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"loc"`
	Message string `json:"msg"`
	Value   any    `json:"input,omitempty"`
}

// ValidationError 多个字段的校验错误
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFeatures, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFeatures
}

// PredictionRequest /predict 请求体，指针字段区分缺失、null 与零值
type PredictionRequest struct {
	ModelKey                string `json:"model_key" binding:"required,oneof=Citroën Peugeot PGO Renault Audi BMW Ford Mercedes Opel Porsche Volkswagen 'KIA Motors' 'Alfa Romeo' Ferrari Fiat Lamborghini Maserati Lexus Honda Mazda Mini Mitsubishi Nissan SEAT Subaru Suzuki Toyota Yamaha"`
	Mileage                 *int64 `json:"mileage" binding:"required,min=0"`
	EnginePower             *int64 `json:"engine_power" binding:"required,min=0"`
	Fuel                    string `json:"fuel" binding:"required,oneof=diesel petrol hybrid_petrol electro"`
	PaintColor              string `json:"paint_color" binding:"required,oneof=black grey white red silver blue orange beige brown green"`
	CarType                 string `json:"car_type" binding:"required,oneof=convertible coupe estate hatchback sedan subcompact suv van"`
	PrivateParkingAvailable *bool  `json:"private_parking_available" binding:"required"`
	HasGPS                  *bool  `json:"has_gps" binding:"required"`
	HasAirConditioning      *bool  `json:"has_air_conditioning" binding:"required"`
	AutomaticCar            *bool  `json:"automatic_car" binding:"required"`
	HasGetaroundConnect     *bool  `json:"has_getaround_connect" binding:"required"`
	HasSpeedRegulator       *bool  `json:"has_speed_regulator" binding:"required"`
	WinterTires             *bool  `json:"winter_tires" binding:"required"`
}

// Features 转成模型输入，只能在校验通过后调用
func (r *PredictionRequest) Features() *PredictionFeatures {
	return &PredictionFeatures{
		ModelKey:                r.ModelKey,
		Mileage:                 *r.Mileage,
		EnginePower:             *r.EnginePower,
		Fuel:                    r.Fuel,
		PaintColor:              r.PaintColor,
		CarType:                 r.CarType,
		PrivateParkingAvailable: *r.PrivateParkingAvailable,
		HasGPS:                  *r.HasGPS,
		HasAirConditioning:      *r.HasAirConditioning,
		AutomaticCar:            *r.AutomaticCar,
		HasGetaroundConnect:     *r.HasGetaroundConnect,
		HasSpeedRegulator:       *r.HasSpeedRegulator,
		WinterTires:             *r.WinterTires,
	}
}

var enumValues = map[string][]string{
	"model_key":   ModelKeys,
	"fuel":        FuelTypes,
	"paint_color": PaintColors,
	"car_type":    CarTypes,
}

// NewValidationError 把绑定错误转换为 *ValidationError
func NewValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, toFieldError(fe))
		}
		return &ValidationError{Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Fields: []FieldError{{
			Field:   typeErr.Field,
			Message: "must be of type " + typeErr.Type.String(),
			Value:   typeErr.Value,
		}}}
	}
	return &ValidationError{Fields: []FieldError{{Field: "body", Message: "invalid JSON object"}}}
}

func toFieldError(fe validator.FieldError) FieldError {
	name := jsonName(fe.StructField())
	switch fe.Tag() {
	case "required":
		return FieldError{Field: name, Message: "field required"}
	case "oneof":
		return FieldError{Field: name, Message: "must be one of: " + strings.Join(enumValues[name], ", "), Value: fe.Value()}
	case "min":
		return FieldError{Field: name, Message: "must be >= " + fe.Param(), Value: fe.Value()}
	default:
		return FieldError{Field: name, Message: "failed on " + fe.Tag(), Value: fe.Value()}
	}
}

func jsonName(structField string) string {
	f, ok := reflect.TypeOf(PredictionRequest{}).FieldByName(structField)
	if !ok {
		return structField
	}
	return strings.Split(f.Tag.Get("json"), ",")[0]
}

// Prediction 一次已记录的价格预测
type Prediction struct {
	ID             int64              `json:"id" db:"id"`
	Features       PredictionFeatures `json:"features" db:"features"`
	PredictedPrice float64            `json:"predicted_price" db:"predicted_price"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
