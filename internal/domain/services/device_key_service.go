package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"strings"

	"telemetry-http-service/internal/infrastructure/config"
	Logger "telemetry-http-service/pkg/logger"
	"telemetry-http-service/pkg/utils"
)

// InterfaceDeviceKeyService defines the device key directory interface
type InterfaceDeviceKeyService interface {
	ResolveKey(deviceID string) (string, bool)
	Verify(deviceID, providedKey string) bool
}

// DeviceKeyService resolves the shared secret of a device. Secrets come from
// a per-device map first, then from a single fallback secret. A device with
// neither can never authenticate.
type DeviceKeyService struct {
	keys     map[string]string
	fallback string
}

// NewDeviceKeyService 根据配置创建设备密钥服务
func NewDeviceKeyService(cfg *config.Config) InterfaceDeviceKeyService {
	return NewDeviceKeyDirectory(cfg.DeviceKeysJSON, cfg.DeviceKey)
}

// NewDeviceKeyDirectory builds the directory from the raw JSON map and the
// fallback secret. A malformed map is logged and ignored so lookups fall
// through to the fallback.
func NewDeviceKeyDirectory(keysJSON, fallback string) *DeviceKeyService {
	s := &DeviceKeyService{fallback: fallback}

	if strings.TrimSpace(keysJSON) != "" {
		var keys map[string]string
		if err := json.Unmarshal([]byte(keysJSON), &keys); err != nil {
			Logger.Error("Failed to parse DEVICE_KEYS_JSON, ignoring per-device keys: %v", err)
		} else {
			s.keys = keys
		}
	}

	if s.keys == nil && fallback == "" {
		Logger.Warning("No device keys configured: every ingestion will be rejected")
	}
	return s
}

// 1 ResolveKey returns the expected secret for deviceID.
func (s *DeviceKeyService) ResolveKey(deviceID string) (string, bool) {
	if secret, ok := s.keys[deviceID]; ok && secret != "" {
		return secret, true
	}
	if s.fallback != "" {
		return s.fallback, true
	}
	return "", false
}

// 2 Verify compares providedKey with the resolved secret without leaking
// timing information. Secrets stored as bcrypt hashes are checked with bcrypt.
func (s *DeviceKeyService) Verify(deviceID, providedKey string) bool {
	if deviceID == "" || providedKey == "" {
		return false
	}
	expected, ok := s.ResolveKey(deviceID)
	if !ok {
		return false
	}

	if utils.IsBcryptHash(expected) {
		return utils.CheckPasswordHash(providedKey, expected)
	}

	// 比较摘要，避免通过长度差异泄露信息
	want := sha256.Sum256([]byte(expected))
	got := sha256.Sum256([]byte(providedKey))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
