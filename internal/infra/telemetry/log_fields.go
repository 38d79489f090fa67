package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldOperation  = "operation"
	FieldAsset      = "asset"
	FieldStatus     = "status"
	FieldStage      = "stage"
	FieldTool       = "tool"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
)

func OperationField(operation string) zap.Field {
	return zap.String(FieldOperation, operation)
}

func AssetField(ref string) zap.Field {
	return zap.String(FieldAsset, ref)
}

func StatusField(status int) zap.Field {
	return zap.Int(FieldStatus, status)
}

func StageField(stage string) zap.Field {
	return zap.String(FieldStage, stage)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

// MaskSecret shortens a credential so logs never carry the full value.
func MaskSecret(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:8] + "..."
}
