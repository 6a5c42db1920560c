package builder

// SignatureLevel names the function overload signature levels. Build keeps
// the level in Options but does not read it: no FunctionRef node it emits
// carries an overload signature, whatever the level.
type SignatureLevel int

const (
	SignatureNone SignatureLevel = iota
	SignatureDiffering
	SignatureOverloads
	SignatureAll
)

// Options configures a single Build invocation. The zero value turns every
// option off; DefaultOptions returns the documented defaults.
type Options struct {
	EnableAnnotations       bool
	EnableLocators          bool
	EnableResultTypes       bool
	DisableDemotion         bool
	DisableListDemotion     bool
	DisableListPromotion    bool
	EnableIntervalDemotion  bool
	EnableIntervalPromotion bool
	DisableMethodInvocation bool
	StrictMode              bool
	SignatureLevel          SignatureLevel
	VerifyOnly              bool

	TranslatorVersion string
}

// DefaultOptions returns the documented defaults: annotations and locators
// on, result types and strict coercion controls off.
func DefaultOptions() Options {
	return Options{
		EnableAnnotations: true,
		EnableLocators:    true,
		TranslatorVersion: "1.0.0",
	}
}

// Normalize applies StrictMode by folding it into the individual Disable*
// flags, matching the documented "StrictMode is the union of all Disable*
// flags" semantics.
func (o Options) Normalize() Options {
	if o.StrictMode {
		o.DisableDemotion = true
		o.DisableListDemotion = true
		o.DisableListPromotion = true
		o.DisableMethodInvocation = true
	}
	return o
}

// String renders a canonical, order-stable option summary for the
// CqlToElmInfo annotation's translatorOptions field.
func (o Options) String() string {
	flags := []struct {
		name string
		set  bool
	}{
		{"EnableAnnotations", o.EnableAnnotations},
		{"EnableLocators", o.EnableLocators},
		{"EnableResultTypes", o.EnableResultTypes},
		{"DisableDemotion", o.DisableDemotion},
		{"DisableListDemotion", o.DisableListDemotion},
		{"DisableListPromotion", o.DisableListPromotion},
		{"EnableIntervalDemotion", o.EnableIntervalDemotion},
		{"EnableIntervalPromotion", o.EnableIntervalPromotion},
		{"DisableMethodInvocation", o.DisableMethodInvocation},
		{"StrictMode", o.StrictMode},
	}
	out := ""
	for _, f := range flags {
		if !f.set {
			continue
		}
		if out != "" {
			out += ","
		}
		out += f.name
	}
	return out
}
