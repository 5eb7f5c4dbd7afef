package registry

// Advert is the built-in snippet type: a short label plus a link target.
var Advert = Type{
	AppLabel:     "tests",
	ModelName:    "advert",
	VerboseName:  "advert",
	DisplayField: "text",
	Fields: []Field{
		{Name: "text", Label: "Text", Kind: KindText, Required: true, MaxLength: 255},
		{Name: "url", Label: "URL", Kind: KindURL, Required: true},
	},
}

// Default returns a registry holding the built-in types.
func Default() *Registry {
	r := New()
	if err := r.Register(Advert); err != nil {
		// Advert is a constant definition; failing here is a programming error.
		panic(err)
	}
	return r
}
