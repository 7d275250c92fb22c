package derive

import (
	"fmt"

	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
)

// TypeResolutionError reports a column whose type has no native value
// type. It is returned wrapped in an *errs.Error of kind
// errs.ErrKindTypeResolution.
type TypeResolutionError struct {
	Model    string
	Table    string
	Column   string
	TypeName string
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("could not infer native type for column %s.%s (%s)", e.Table, e.Column, e.TypeName)
}

func newTypeResolutionError(model orm.Model, table string, col *orm.Column) error {
	typeName := "<nil>"
	if col.Type != nil {
		typeName = col.Type.TypeName()
	}
	cause := &TypeResolutionError{
		Model:    model.ModelName(),
		Table:    table,
		Column:   col.Name,
		TypeName: typeName,
	}
	return errs.Wrap(errs.ErrKindTypeResolution, "deriving schema for "+model.ModelName(), cause)
}
