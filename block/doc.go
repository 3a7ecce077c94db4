// Package block defines editor blocks whose styles are rendered from CSS
// templates.
//
// A [Definition] declares the fields a block accepts, each with a kind, a
// default and optionally a closed set of options or a token category, plus
// the template producing the block's CSS. A [Registry] holds definitions
// and renders block instances:
//
//	reg := block.NewRegistry(tmpl.New(theme.Default()))
//	_ = reg.Register(ctx, block.Builtins()...)
//	out, err := reg.Render(ctx, "hero", "hero-1", map[string]any{
//		"text_color": "primary",
//	})
//	fmt.Println(out.StyleElement())
//
// Definitions are loaded from YAML with [LoadDefinition], [LoadDir] and
// [LoadFS]. The compiler never generates block ids; [NewID] does.
package block
