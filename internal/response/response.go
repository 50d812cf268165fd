// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Error messages are part of the client contract; do not reword them.
const (
	MsgUnauthenticated  = "Anda harus login terlebih dahulu"
	MsgForbidden        = "Forbidden: Anda tidak memiliki akses"
	MsgNotFound         = "Barang tidak ditemukan"
	MsgInvalidInput     = "Data tidak boleh kosong"
	MsgImageFormat      = "Format gambar salah (hanya JPG, JPEG, PNG)"
	MsgTooLarge         = "Ukuran data terlalu besar"
	MsgInternal         = "Terjadi kesalahan pada server"
	MsgRouteNotFound    = "Halaman tidak ditemukan"
	MsgMethodNotAllowed = "Metode tidak diizinkan"
)

// Status is the standard status/message body used for errors and
// plain confirmations.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with payload as the body.
func OK(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusOK, payload)
}

// Created writes a 201 response with payload as the body.
func Created(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusCreated, payload)
}

// Success writes a 200 {"status":"success","message":...} response.
func Success(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Status{Status: "success", Message: message})
}

// Error writes an error response with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Status{Status: "error", Message: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, MsgUnauthenticated)
}

// Forbidden writes a 403 response.
func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, MsgForbidden)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// TooLarge writes a 413 response.
func TooLarge(w http.ResponseWriter) {
	Error(w, http.StatusRequestEntityTooLarge, MsgTooLarge)
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, MsgInternal)
}
