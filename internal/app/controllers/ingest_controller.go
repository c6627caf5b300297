package controllers

import (
	"errors"
	"io"
	"net/http"

	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"
	"telemetry-http-service/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// DeviceKeyHeader carries the device shared secret.
const DeviceKeyHeader = "x-device-key"

// InterfaceIngestController 定义数据采集控制器接口
type InterfaceIngestController interface {
	Ingest()
}

// IngestController 处理设备上报请求
type IngestController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// IngestSuccess is the body of an accepted ingestion.
type IngestSuccess struct {
	OK         bool   `json:"ok" example:"true"`
	InsertedID uint64 `json:"inserted_id" example:"1024"`
}

// NewIngestController 创建数据采集控制器
func NewIngestController(ctx *gin.Context, container *container.ServiceContainer) *IngestController {
	return &IngestController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleIngestFunc 返回处理设备上报请求的Gin处理函数
func HandleIngestFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewIngestController(ctx, container)

		switch method {
		case "ingest":
			controller.Ingest()
		default:
			response.FailWithKind(ctx, code.InternalError, "无效的方法")
		}
	}
}

// Ingest 接收设备读数
// @Summary      Ingest a reading
// @Description  Validates, rate-limits and authenticates a device reading, then stores it
// @Tags         Ingest
// @Accept       json
// @Produce      json
// @Param        x-device-key header string true "Device shared secret"
// @Param        request body services.ReadingPayload true "Reading payload"
// @Success      200  {object}  IngestSuccess
// @Failure      400  {object}  response.ErrorResponse  "INVALID_JSON or INVALID_PAYLOAD"
// @Failure      401  {object}  response.ErrorResponse  "UNAUTHORIZED"
// @Failure      429  {object}  response.ErrorResponse  "RATE_LIMITED"
// @Failure      500  {object}  response.ErrorResponse  "DB_ERROR or INTERNAL_ERROR"
// @Router       /ingest [post]
func (c *IngestController) Ingest() {
	cfg := c.Container.GetService("config").(*config.Config)

	reader := http.MaxBytesReader(c.Ctx.Writer, c.Ctx.Request.Body, cfg.MaxBodyBytes)
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c.Ctx, code.New(code.InvalidPayload, "Request body too large"))
			return
		}
		response.Fail(c.Ctx, code.Wrap(code.InvalidJSON, err, ""))
		return
	}

	ingestService := c.Container.GetService("ingest").(services.InterfaceIngestService)
	result, err := ingestService.Ingest(c.Ctx.Request.Context(), services.IngestRequest{
		Body:      body,
		DeviceKey: c.Ctx.GetHeader(DeviceKeyHeader),
	})
	if err != nil {
		response.Fail(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{"inserted_id": result.InsertedID})
}
