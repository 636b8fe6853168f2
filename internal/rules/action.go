package rules

// ActionKind tags the variant held by an Action.
type ActionKind int

const (
	// ActionLiteral rewrites the request path using a replacement template.
	ActionLiteral ActionKind = iota
	// ActionRender answers the request with generated content.
	ActionRender
)

func (k ActionKind) String() string {
	switch k {
	case ActionLiteral:
		return "literal"
	case ActionRender:
		return "render"
	default:
		return "unknown"
	}
}

// RenderFunc produces a complete response body.
type RenderFunc func() ([]byte, error)

// Action is the value bound to a rule pattern.
type Action struct {
	Kind ActionKind

	// Replacement is set for ActionLiteral. It may contain $0, $1, ... placeholders.
	Replacement string

	// Render is set for ActionRender.
	Render RenderFunc
}

// Literal returns a rewrite action.
func Literal(replacement string) Action {
	return Action{Kind: ActionLiteral, Replacement: replacement}
}

// Render returns a render action.
func Render(fn RenderFunc) Action {
	return Action{Kind: ActionRender, Render: fn}
}

// IsRender reports whether the action can answer a request on its own.
func (a Action) IsRender() bool {
	return a.Kind == ActionRender && a.Render != nil
}
