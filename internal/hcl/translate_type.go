// This file contains the logic for parsing field type expressions (e.g.
// `float`, `"rgba"`, `list(texture)`) into the kind spelling used by the
// component package.

package hcl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToKind converts a field's type expression into its kind spelling.
func typeExprToKind(ctx context.Context, expr hcl.Expression) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		logger.Debug("Parsing type expression as a keyword.", "keyword", kw)
		return checkKind(kw, false)
	}

	if call, ok := expr.(*hclsyntax.FunctionCallExpr); ok {
		logger.Debug("Parsing type expression as a function call.", "call", call.Name)
		if call.Name != string(component.KindList) {
			return "", fmt.Errorf("unknown type constructor %q", call.Name)
		}
		if len(call.Args) != 1 {
			return "", fmt.Errorf("list() requires exactly one argument, got %d", len(call.Args))
		}
		elem, err := typeExprToKind(ctx, call.Args[0])
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(elem, "list") {
			return "", errors.New("lists of lists are not supported")
		}
		return fmt.Sprintf("list(%s)", elem), nil
	}

	// A quoted type name.
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if !val.Type().Equals(cty.String) || val.IsNull() {
		return "", fmt.Errorf("invalid type expression: expected a kind name, got %s", val.Type().FriendlyName())
	}
	s := strings.TrimSpace(val.AsString())
	if inner, ok := strings.CutPrefix(s, "list("); ok && strings.HasSuffix(inner, ")") {
		elem, err := checkKind(strings.TrimSuffix(inner, ")"), true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("list(%s)", elem), nil
	}
	return checkKind(s, false)
}

func checkKind(name string, elem bool) (string, error) {
	k := component.Kind(name)
	if elem && k == component.KindList {
		return "", errors.New("lists of lists are not supported")
	}
	if k == component.KindList {
		return "", errors.New("list needs an element type, e.g. list(string)")
	}
	if !slices.Contains(component.Kinds(), k) {
		return "", fmt.Errorf("unknown field type %q", name)
	}
	return name, nil
}
