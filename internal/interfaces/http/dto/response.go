package dto

import "encoding/json"

// Envelope wraps every successful admin API body.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
}

// ErrorResponse is the body of every failed request. Webhook senders only
// read error_message.
type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
	Code         string `json:"code,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta computes the page count for total rows split into pages of size.
func NewPageMeta(total int64, page, size int) *PageMeta {
	meta := &PageMeta{Total: total, Page: page, PageSize: size}
	if size > 0 {
		meta.TotalPages = int((total + int64(size) - 1) / int64(size))
	}
	return meta
}

func Ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func OkPage(data any, meta *PageMeta) Envelope {
	return Envelope{Success: true, Data: data, Meta: meta}
}

// Failure builds an error body. requestID may be empty.
func Failure(code, message, requestID string) ErrorResponse {
	return ErrorResponse{ErrorMessage: message, Code: code, RequestID: requestID}
}

// TypeRequest binds the :type path segment.
type TypeRequest struct {
	Type string `uri:"type" binding:"required"`
}

// KeyRequest binds the :key path segment.
type KeyRequest struct {
	Key string `uri:"key" binding:"required"`
}

// RecordRequest binds the :id path segment of a sync record.
type RecordRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// SettingUpdateRequest is the body of PUT /settings/:key
type SettingUpdateRequest struct {
	Value *string `json:"value" binding:"required"`
}

// WebhookRequest is the body of POST /webhooks when the event is not in the path
type WebhookRequest struct {
	Event   string          `json:"event" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}
