package api

// ContentResponse представляет все содержимое сайта, хранящееся на backend
type ContentResponse struct {
	Content   map[string]string `json:"content"`    // плоское отображение поле -> значение
	UpdatedAt int64             `json:"updated_at"` // время последнего изменения в epoch millis
}

// BatchSaveRequest представляет пакет изменений для сохранения
type BatchSaveRequest struct {
	Changes []PendingChange `json:"changes"`
}

// FieldResult описывает результат сохранения одного поля
type FieldResult struct {
	FieldName string `json:"field_name"`
	Value     string `json:"value,omitempty"` // сохраненное значение, пусто при ошибке
	Error     string `json:"error,omitempty"`
	Success   bool   `json:"success"`
}

// BatchSaveResponse представляет результат пакетного сохранения
type BatchSaveResponse struct {
	Results    []FieldResult `json:"results"`
	SavedCount int           `json:"saved_count"`
	Success    bool          `json:"success"` // true, если сохранены все поля
}

// HealthResponse представляет ответ health-check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
