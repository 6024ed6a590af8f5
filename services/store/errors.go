package main

import "fmt"

// InvalidEntityError é retornado quando a construção de uma entidade viola um invariante
type InvalidEntityError struct {
	Entity string
	Field  string
	Reason string
}

func (e *InvalidEntityError) Error() string {
	return fmt.Sprintf("invalid %s: field=%s, reason=%s", e.Entity, e.Field, e.Reason)
}

// Is permite a checagem de tipo com errors.Is()
func (e *InvalidEntityError) Is(target error) bool {
	_, ok := target.(*InvalidEntityError)
	return ok
}

// NewInvalidEntityError cria um novo InvalidEntityError
func NewInvalidEntityError(entity, field, reason string) error {
	return &InvalidEntityError{Entity: entity, Field: field, Reason: reason}
}

// EntityNotFoundError é retornado quando a linha referenciada não existe
type EntityNotFoundError struct {
	Field string
	Value string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s does not exist", e.Field, e.Value)
}

// Is permite a checagem de tipo com errors.Is()
func (e *EntityNotFoundError) Is(target error) bool {
	_, ok := target.(*EntityNotFoundError)
	return ok
}

// NewEntityNotFoundError cria um novo EntityNotFoundError
func NewEntityNotFoundError(field, value string) error {
	return &EntityNotFoundError{Field: field, Value: value}
}

// EntityAlreadyExistsError é retornado quando uma restrição de unicidade é violada
type EntityAlreadyExistsError struct {
	Field string
	Value string
}

func (e *EntityAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: %s already exists", e.Field, e.Value)
}

// Is permite a checagem de tipo com errors.Is()
func (e *EntityAlreadyExistsError) Is(target error) bool {
	_, ok := target.(*EntityAlreadyExistsError)
	return ok
}

// NewEntityAlreadyExistsError cria um novo EntityAlreadyExistsError
func NewEntityAlreadyExistsError(field, value string) error {
	return &EntityAlreadyExistsError{Field: field, Value: value}
}

// PlaceOrderReason identifica o motivo da rejeição de um pedido
type PlaceOrderReason string

const (
	ReasonQuantityNotEnough  PlaceOrderReason = "QUANTITY_NOT_ENOUGH"
	ReasonBalanceNotEnough   PlaceOrderReason = "BALANCE_NOT_ENOUGH"
	ReasonOrderAlreadyExists PlaceOrderReason = "ORDER_ALREADY_EXISTS"
)

// PlaceOrderError é retornado quando uma regra de negócio rejeita o pedido.
// Nada é persistido quando esse erro ocorre.
type PlaceOrderError struct {
	Reason PlaceOrderReason
}

func (e *PlaceOrderError) Error() string {
	switch e.Reason {
	case ReasonQuantityNotEnough:
		return "product quantity is not enough"
	case ReasonBalanceNotEnough:
		return "user balance is not enough"
	case ReasonOrderAlreadyExists:
		return "order id already exists"
	default:
		return string(e.Reason)
	}
}

// Is permite a checagem de tipo com errors.Is()
func (e *PlaceOrderError) Is(target error) bool {
	_, ok := target.(*PlaceOrderError)
	return ok
}

// NewPlaceOrderError cria um novo PlaceOrderError
func NewPlaceOrderError(reason PlaceOrderReason) error {
	return &PlaceOrderError{Reason: reason}
}
