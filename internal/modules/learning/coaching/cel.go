package coaching

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// celProgram is a compiled `expression` condition. Expressions see:
//
//	metrics               map(string, double)  keyed like MetricKey
//	streak_days           int
//	previous_streak_days  int
//	days_inactive         int (-1 when never active)
//	subjects              list(string)
type celProgram struct {
	expr string
	prg  cel.Program
}

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

func expressionEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
			cel.Variable("streak_days", cel.IntType),
			cel.Variable("previous_streak_days", cel.IntType),
			cel.Variable("days_inactive", cel.IntType),
			cel.Variable("subjects", cel.ListType(cel.StringType)),
		)
	})
	return celEnv, celEnvErr
}

func compileExpression(expr string) (*celProgram, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &celProgram{expr: expr, prg: prg}, nil
}

func (p *celProgram) eval(m MetricsSnapshot) (bool, error) {
	metrics := make(map[string]float64, len(m.Values))
	for k, v := range m.Values {
		metrics[k] = v
	}
	subjects := m.sortedSubjects()
	if subjects == nil {
		subjects = []string{}
	}
	out, _, err := p.prg.Eval(map[string]any{
		"metrics":              metrics,
		"streak_days":          int64(m.StreakDays),
		"previous_streak_days": int64(m.PreviousStreakDays),
		"days_inactive":        int64(m.DaysInactive),
		"subjects":             subjects,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T", p.expr, out.Value())
	}
	return b, nil
}

func evalExpression(x *ExpressionCondition, m MetricsSnapshot) (bool, map[string]string, error) {
	if x == nil {
		return false, nil, fmt.Errorf("expression: missing payload")
	}
	if x.program == nil {
		prg, err := compileExpression(x.Expr)
		if err != nil {
			return false, nil, err
		}
		x.program = prg
	}
	ok, err := x.program.eval(m)
	if err != nil || !ok {
		return false, nil, err
	}
	return true, map[string]string{}, nil
}
