package handler

import (
	"aegis-rag-go/internal/model"
	"aegis-rag-go/internal/service"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// statusFor 将业务错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLedgerDisabled), errors.Is(err, service.ErrQueueDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrSearch), errors.Is(err, model.ErrIndexWrite), errors.Is(err, model.ErrIndexCreation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
