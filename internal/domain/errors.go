package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	// ErrSequenceExhausted el correlativo superó el máximo representable para la serie.
	ErrSequenceExhausted = errors.New("correlativo agotado para la serie")
)
