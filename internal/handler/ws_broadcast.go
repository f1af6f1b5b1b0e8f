package handler

// BroadcastProvinceEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastProvinceEvent(provinceID string, eventType string, data any) {
	h.BroadcastToProvince(provinceID, WSEvent{
		Type:       eventType,
		ProvinceID: provinceID,
		Data:       data,
	})
}
