package controllers

import (
	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceReadingController 定义看板查询控制器接口
type InterfaceReadingController interface {
	Latest()
	Range()
	Devices()
}

// ReadingController 处理看板的只读查询，不需要设备密钥
type ReadingController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// LatestResponse is the body of a latest-reading query.
type LatestResponse struct {
	OK   bool           `json:"ok" example:"true"`
	Data models.Reading `json:"data"`
}

// RangeResponse is the body of a range query.
type RangeResponse struct {
	OK   bool             `json:"ok" example:"true"`
	Data []models.Reading `json:"data"`
}

// DevicesResponse is the body of the device list.
type DevicesResponse struct {
	OK   bool                   `json:"ok" example:"true"`
	Data []models.DeviceSummary `json:"data"`
}

// NewReadingController 创建查询控制器
func NewReadingController(ctx *gin.Context, container *container.ServiceContainer) *ReadingController {
	return &ReadingController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleReadingFunc 返回处理查询请求的Gin处理函数
func HandleReadingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewReadingController(ctx, container)

		switch method {
		case "latest":
			controller.Latest()
		case "range":
			controller.Range()
		case "devices":
			controller.Devices()
		default:
			response.FailWithKind(ctx, code.InternalError, "无效的方法")
		}
	}
}

func (c *ReadingController) service() services.InterfaceReadingService {
	return c.Container.GetService("reading").(services.InterfaceReadingService)
}

// Latest 获取设备最新读数
// @Summary      Latest reading
// @Description  Returns the most recently stored reading of a device
// @Tags         Readings
// @Produce      json
// @Param        device_id query string true "Device ID"
// @Success      200  {object}  LatestResponse
// @Failure      400  {object}  response.ErrorResponse  "MISSING_PARAM"
// @Failure      404  {object}  response.ErrorResponse  "NOT_FOUND"
// @Failure      500  {object}  response.ErrorResponse  "DB_ERROR"
// @Router       /latest [get]
func (c *ReadingController) Latest() {
	deviceID := c.Ctx.Query("device_id")
	if deviceID == "" {
		response.FailWithKind(c.Ctx, code.MissingParam, "device_id is required")
		return
	}

	reading, err := c.service().Latest(c.Ctx.Request.Context(), deviceID)
	if err != nil {
		response.Fail(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"data": reading})
}

// Range 获取时间范围内的读数
// @Summary      Readings in range
// @Description  Returns readings oldest first, capped at 5000 rows. minutes takes precedence over from/to.
// @Tags         Readings
// @Produce      json
// @Param        device_id query string true "Device ID"
// @Param        minutes query int false "Relative window in minutes"
// @Param        from query string false "Inclusive lower bound, RFC3339 or unix ms"
// @Param        to query string false "Inclusive upper bound, RFC3339 or unix ms"
// @Success      200  {object}  RangeResponse
// @Failure      400  {object}  response.ErrorResponse  "MISSING_PARAM or INVALID_PARAM"
// @Failure      500  {object}  response.ErrorResponse  "DB_ERROR"
// @Router       /range [get]
func (c *ReadingController) Range() {
	deviceID := c.Ctx.Query("device_id")
	if deviceID == "" {
		response.FailWithKind(c.Ctx, code.MissingParam, "device_id is required")
		return
	}

	sel, err := services.ParseRangeSelector(c.Ctx.Query("minutes"), c.Ctx.Query("from"), c.Ctx.Query("to"))
	if err != nil {
		response.Fail(c.Ctx, err)
		return
	}

	readings, err := c.service().Range(c.Ctx.Request.Context(), deviceID, sel)
	if err != nil {
		response.Fail(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"data": readings})
}

// Devices 获取设备列表及在线状态
// @Summary      Devices
// @Description  Lists known devices with last-seen time and online flag
// @Tags         Readings
// @Produce      json
// @Success      200  {object}  DevicesResponse
// @Failure      500  {object}  response.ErrorResponse  "DB_ERROR"
// @Router       /devices [get]
func (c *ReadingController) Devices() {
	devices, err := c.service().Devices(c.Ctx.Request.Context())
	if err != nil {
		response.Fail(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"data": devices})
}
