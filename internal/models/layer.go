package models

// TileLayer представляет тайловый слой карты. Встроенные слои (IsDefault)
// удалить нельзя; активным в каждый момент является хотя бы один слой.
type TileLayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"` // builtin или custom
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsDefault   bool   `json:"is_default"`
	MaxZoom     int    `json:"max_zoom"`
}

// DummyLayer используется для приёма данных нового слоя из JSON-запроса.
type DummyLayer struct {
	Name        string `json:"name" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Attribution string `json:"attribution,omitempty"`
	MaxZoom     int    `json:"max_zoom" validate:"omitempty,gte=1,lte=22"`
}
