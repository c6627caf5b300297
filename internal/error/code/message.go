package code

// 错误码消息映射
var codeMessageMap = map[Kind]string{
	// 客户端错误
	InvalidJSON:    "Invalid JSON body",
	InvalidPayload: "Payload failed validation",
	MissingParam:   "Missing required parameter",
	InvalidParam:   "Invalid parameter",
	Unauthorized:   "Invalid or missing device key",
	Forbidden:      "Forbidden",
	NotFound:       "No data found",
	RateLimited:    "Too many requests",

	// 服务端错误
	DBError:       "Database error",
	InternalError: "Unknown error",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[Kind]int{
	InvalidJSON:    StatusBadRequest,
	InvalidPayload: StatusBadRequest,
	MissingParam:   StatusBadRequest,
	InvalidParam:   StatusBadRequest,
	Unauthorized:   StatusUnauthorized,
	Forbidden:      StatusForbidden,
	NotFound:       StatusNotFound,
	RateLimited:    StatusTooManyRequests,

	DBError:       StatusInternalServerError,
	InternalError: StatusInternalServerError,
}

// GetMessage 获取错误码对应的消息
func GetMessage(kind Kind) string {
	if msg, ok := codeMessageMap[kind]; ok {
		return msg
	}
	return codeMessageMap[InternalError]
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(kind Kind) int {
	if status, ok := codeStatusMap[kind]; ok {
		return status
	}
	return StatusInternalServerError
}
