package infrastructure

import (
	"github.com/google/uuid"

	"github.com/mateusmacedo/expresso-van/pkg/domain"
)

func GenerateUUID() string {
	return uuid.New().String()
}

// NewUUIDGenerator devolve um IDGenerator baseado em UUID v4.
func NewUUIDGenerator() domain.IDGenerator[string] {
	return GenerateUUID
}
