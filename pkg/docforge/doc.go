// Package docforge renders text document templates against loosely typed data.
//
// A template mixes literal text with variable markers, conditional blocks and
// named reusable sections. Missing variables and mismatched types never fail a
// render; malformed syntax and broken section references always do.
//
// # Quick Start
//
//	ctx := docforge.ContextOf(map[string]any{
//	    "name":  "John",
//	    "items": []string{"Apple", "Orange", "Banana"},
//	})
//
//	res, err := docforge.Render("Hello {{name}}, your items: {{items}}", ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Output) // Hello John, your items: Apple, Orange, Banana
//
// # Template Syntax
//
//	{{user.profile.name}}                      - Variable (dotted path)
//	{{items.0}}                                - Sequence element
//	{% if age >= 18 AND has_consent %}...{% endif %}
//	{% if vip %}...{% else %}...{% endif %}
//	{% section footer %}...{% endsection %}   - Define a section
//	{% include footer %}                       - Expand a section
//
// Sections may be included before they are defined. A section that includes
// itself through any chain of includes is reported as a
// CircularSectionReferenceError naming the cycle, e.g. "A -> B -> A".
//
// # Conditions
//
// Conditions support the comparators ==, !=, <, <=, >, >= and the keywords
// NOT, AND, OR with precedence NOT > AND > OR, so "A AND B OR C" means
// "(A AND B) OR C". Keywords and the literals true, false, null and none are
// reserved words in any letter case; variable paths are case sensitive.
// AND and OR short-circuit from left to right. Ordering comparisons between
// incompatible kinds are false.
//
// # Values
//
// Context values are a closed set of kinds (None, Bool, Int, Float, String,
// Sequence, Timestamp and Map). Format renders None as "", booleans as
// "Yes"/"No", sequences joined by ", " and timestamps as RFC 3339.
//
// # Configuration
//
// Engines read DOCFORGE_LOG_LEVEL, DOCFORGE_LOG_FORMAT, DOCFORGE_MAX_DEPTH,
// DOCFORGE_MAX_INCLUDES, DOCFORGE_TRIM_BLOCKS and
// DOCFORGE_UNRESOLVED_PLACEHOLDER from the environment, or a YAML file via
// LoadConfigFile. MaxDepth bounds nesting and MaxIncludes bounds the total
// number of section expansions in one render, so every render terminates.
package docforge
