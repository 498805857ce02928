package domain

import "errors"

// Ошибки уровня запуска: они прерывают старт сессии и НЕ маскируются.
var (
	// ErrModelNotTrained — нет обученного артефакта распознавателя лиц.
	// Сессия не должна молча работать, считая всех «неизвестными».
	ErrModelNotTrained = errors.New("face model is not trained")

	// ErrCameraUnavailable — источник кадров недоступен при старте.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Ошибки жизненного цикла сессии.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotRunning = errors.New("session is not running")
)

// ErrIdentityNotFound — справочник не знает такой ID (запись удалена или
// модель обучена на устаревших метках).
var ErrIdentityNotFound = errors.New("identity not found")
