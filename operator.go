package pagequery

import "fmt"

// Operator defines a comparison operator applied to a column in a Comparison.
type Operator string

func (o Operator) Valid() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorGT, OperatorLT, OperatorGoe, OperatorLoe:
		return true
	default:
		return false
	}
}

// holds reports whether the result of comparing a column value against the
// operand (negative, zero or positive, as cmp.Compare returns) satisfies o.
func (o Operator) holds(cmpResult int) bool {
	switch o {
	case OperatorEq:
		return cmpResult == 0
	case OperatorNe:
		return cmpResult != 0
	case OperatorGT:
		return cmpResult > 0
	case OperatorLT:
		return cmpResult < 0
	case OperatorGoe:
		return cmpResult >= 0
	case OperatorLoe:
		return cmpResult <= 0
	default:
		panic(fmt.Errorf("cannot evaluate operator '%s'", o))
	}
}

const (
	OperatorEq  Operator = "="
	OperatorNe  Operator = "<>"
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorGoe Operator = ">="
	OperatorLoe Operator = "<="
)
