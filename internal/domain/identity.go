package domain

import "time"

// Identity — зарегистрированный человек. Запись создается при регистрации
// и дальше не мутирует (кроме производных счетчиков в истории).
type Identity struct {
	ID           int64     `json:"id"`            // Метка из тренировочного набора (label распознавателя)
	Name         string    `json:"name"`          // Человекочитаемое имя
	ExternalID   string    `json:"external_id"`   // Номер пропуска/документа (уникален)
	Email        string    `json:"email"`         //
	RegisteredAt time.Time `json:"registered_at"` //
}

// RegisteredVehicle — запись реестра транспорта. Номер (нормализованный)
// является естественным ключом.
type RegisteredVehicle struct {
	Plate        string    `json:"plate"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistrationResult — итог попытки регистрации номера.
// Дубликат — это НЕ ошибка, а штатный отказ (success=false).
type RegistrationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
