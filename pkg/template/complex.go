package template

import (
	"fmt"

	"github.com/dop251/goja"
)

// evalComplex evaluates an operator-bearing expression (ternaries,
// comparisons, arithmetic, index access) against the variable bag using a
// throwaway interpreter instance. Only the bag itself is exposed; no host
// capabilities leak into the expression scope.
func evalComplex(expression string, vars map[string]any) (any, error) {
	vm := goja.New()

	for key, value := range vars {
		if err := vm.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to bind variable %q: %w", key, err)
		}
	}

	result, err := vm.RunString("(" + expression + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return result.Export(), nil
}
