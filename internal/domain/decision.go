package domain

import "time"

// FaceMatchStatus — вердикт по одному региону лица в кадре.
type FaceMatchStatus string

const (
	FaceKnown   FaceMatchStatus = "KNOWN"
	FaceUnknown FaceMatchStatus = "UNKNOWN"
	FaceNone    FaceMatchStatus = "NO_FACE"
)

// FaceMatch — транзитный результат сверки одного региона лица.
// Distance — метрика "чем меньше, тем увереннее" (дистанция, не similarity).
type FaceMatch struct {
	Status     FaceMatchStatus `json:"status"`
	IdentityID int64           `json:"identity_id,omitempty"`
	Distance   float64         `json:"distance"`
	Identity   *Identity       `json:"identity,omitempty"` // Заполнен только при KNOWN
}

// PlateMatch — транзитный результат проверки номера по кадру.
// Пустой Plate означает "номер не распознан".
type PlateMatch struct {
	Plate      string `json:"plate,omitempty"`
	Registered bool   `json:"registered"`
}

type Decision string

const (
	DecisionGranted Decision = "GRANTED"
	DecisionDenied  Decision = "DENIED"
)

// DecisionReason — машинная причина решения. Причины отказа всегда
// различают "нет лица", "чужое лицо", "нет номера" и "незарегистрированный номер".
type DecisionReason string

const (
	ReasonAllVerified         DecisionReason = "ALL_VERIFIED"
	ReasonNoFaceDetected      DecisionReason = "NO_FACE_DETECTED"
	ReasonUnknownFace         DecisionReason = "UNKNOWN_FACE"
	ReasonNoPlateDetected     DecisionReason = "NO_PLATE_DETECTED"
	ReasonUnregisteredVehicle DecisionReason = "UNREGISTERED_VEHICLE"
)

// Detail возвращает человекочитаемую расшифровку причины (для UI и логов).
func (r DecisionReason) Detail() string {
	switch r {
	case ReasonAllVerified:
		return "All verified"
	case ReasonNoFaceDetected:
		return "No face detected"
	case ReasonUnknownFace:
		return "Unknown face detected"
	case ReasonNoPlateDetected:
		return "No number plate detected"
	case ReasonUnregisteredVehicle:
		return "Unregistered vehicle detected"
	default:
		return string(r)
	}
}

// GateDecision — слитый результат обработки одного кадра.
// Создается один раз, сразу уходит в журнал и после этого не изменяется
// (append-only audit trail).
type GateDecision struct {
	ID        string         `json:"id"`       // UUID попытки
	SessionID string         `json:"session_id"`
	TraceID   string         `json:"trace_id"` // Сквозной ID запроса
	Timestamp time.Time      `json:"timestamp"`
	Decision  Decision       `json:"decision"`
	Reason    DecisionReason `json:"reason"`
	Detail    string         `json:"detail"`

	// Инвариант: при GRANTED оба поля заполнены и номер зарегистрирован
	// (AND-fusion, оба сигнала прошли независимо).
	Identity *Identity `json:"identity,omitempty"`
	Plate    string    `json:"plate,omitempty"`
}
