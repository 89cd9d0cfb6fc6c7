package contextfile

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

// decodeHCL reads a body made only of attributes. Expressions are evaluated
// without variables or functions, so only literal values are accepted.
func decodeHCL(data []byte, filename string) (*docforge.Map, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	m := docforge.NewMap()
	for _, attr := range ordered {
		v, err := exprToValue(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		m.Set(attr.Name, v)
	}
	return m, nil
}

// exprToValue evaluates expr. Object and tuple constructors are walked item
// by item so nested keys keep their order in the file; cty objects would
// otherwise come back sorted by key.
func exprToValue(expr hcl.Expression) (docforge.Value, error) {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return exprToValue(e.Expression)

	case *hclsyntax.ObjectConsExpr:
		m := docforge.NewMap()
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return docforge.None(), diags
			}
			keyVal, err := convert.Convert(keyVal, cty.String)
			if err != nil || keyVal.IsNull() || !keyVal.IsKnown() {
				return docforge.None(), fmt.Errorf("object key at %s is not a string", item.KeyExpr.Range())
			}
			key := keyVal.AsString()
			v, err := exprToValue(item.ValueExpr)
			if err != nil {
				return docforge.None(), fmt.Errorf("in attribute '%s': %w", key, err)
			}
			m.Set(key, v)
		}
		return docforge.MapValue(m), nil

	case *hclsyntax.TupleConsExpr:
		items := make([]docforge.Value, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, err := exprToValue(item)
			if err != nil {
				return docforge.None(), err
			}
			items = append(items, v)
		}
		return docforge.Seq(items...), nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return docforge.None(), diags
	}
	return ctyToValue(val)
}

// ctyToValue converts a cty value. Whole numbers that fit in int64 become
// integers, everything else numeric becomes a float.
func ctyToValue(v cty.Value) (docforge.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return docforge.None(), nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return docforge.String(v.AsString()), nil

	case ty == cty.Number:
		var i int64
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return docforge.Int(i), nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return docforge.None(), fmt.Errorf("could not convert number: %w", err)
		}
		return docforge.Float(f), nil

	case ty == cty.Bool:
		return docforge.Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var items []docforge.Value
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			item, err := ctyToValue(elem)
			if err != nil {
				return docforge.None(), err
			}
			items = append(items, item)
		}
		return docforge.Seq(items...), nil

	case ty.IsObjectType() || ty.IsMapType():
		m := docforge.NewMap()
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			item, err := ctyToValue(elem)
			if err != nil {
				return docforge.None(), fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			m.Set(key.AsString(), item)
		}
		return docforge.MapValue(m), nil
	}
	return docforge.None(), fmt.Errorf("unsupported type %s", ty.FriendlyName())
}
