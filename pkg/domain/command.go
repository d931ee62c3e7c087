package domain

// Command representa uma intenção de mudança de estado.
type Command[T any] interface {
	CommandName() string
	Payload() T
}

type command[T any] struct {
	name    string
	payload T
}

func (c command[T]) CommandName() string { return c.name }
func (c command[T]) Payload() T          { return c.payload }

// NewCommand cria um comando genérico com nome e payload.
func NewCommand[T any](name string, payload T) Command[T] {
	return command[T]{name: name, payload: payload}
}
