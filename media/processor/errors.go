package processor

import (
	"fmt"
	"strings"

	apperrors "github.com/leeforge/imgpress/errors"
)

// ItemError records the failure of one batch member.
type ItemError struct {
	Index int                 `json:"index"`
	Name  string              `json:"name"`
	Kind  apperrors.ErrorType `json:"kind"`
	Err   error               `json:"-"`
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// BatchError is returned when one or more batch items fail. Items is ordered
// by index and lists every failure.
type BatchError struct {
	Total int          `json:"total"`
	Items []*ItemError `json:"items"`
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d images failed", len(e.Items), e.Total)
	for _, item := range e.Items {
		fmt.Fprintf(&b, "; [%d] %s", item.Index, item.Kind)
	}
	return b.String()
}

// Unwrap exposes every item error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Items))
	for i, item := range e.Items {
		errs[i] = item
	}
	return errs
}

// Indexes returns the failed indexes in ascending order.
func (e *BatchError) Indexes() []int {
	idx := make([]int, len(e.Items))
	for i, item := range e.Items {
		idx[i] = item.Index
	}
	return idx
}

func newItemError(index int, name string, err error) *ItemError {
	return &ItemError{
		Index: index,
		Name:  name,
		Kind:  apperrors.TypeOf(err),
		Err:   err,
	}
}

// AppError summarizes the batch as a single batch-kind AppError whose
// details list every failed item.
func (e *BatchError) AppError() *apperrors.AppError {
	return apperrors.New(apperrors.ErrorTypeBatch, e.Error()).
		WithDetail("total", e.Total).
		WithDetail("failed", e.Items).
		WithInnerError(e)
}
